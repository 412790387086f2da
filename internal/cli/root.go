// Package cli is the daod command line: key management, local and remote
// transactions, state inspection and the HTTP node.
package cli

import (
	"fmt"
	"io"

	"presence_dao/internal/config"
	"presence_dao/internal/logging"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X presence_dao/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  ___                                ___   _   ___\n" +
		" | _ \\_ _ ___ ___ ___ _ _  __ ___   |   \\ /_\\ / _ \\\n" +
		" |  _/ '_/ -_|_-</ -_) ' \\/ _/ -_)  | |) / _ \\ (_) |\n" +
		" |_| |_| \\___/__/\\___|_||_\\__\\___|  |___/_/ \\_\\___/\n"
)

var (
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:          "daod",
	Short:        "daod - presence and competence DAO node",
	Long:         color.CyanString(logo) + "\nMembers earn voting power by showing up and by peer review.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		l, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		logger = l
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "daod %s\n", version)
	},
}

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, color.CyanString(title))
	fmt.Fprintln(w, "─────────────────────")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "daod.yaml", "config file (missing file means defaults)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(addressCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
}
