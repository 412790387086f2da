////////////////////////////////////////////////////////////////////////////////
// Presence DAO: reputation by attendance and peer review
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"os"

	"presence_dao/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
