package cli

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"presence_dao/contract"
	"presence_dao/sdk"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	keyFile  string
	forceKey bool
)

// loadKey reads a key file written by keygen. An empty path falls back to
// node.keyFile.
func loadKey(path string) (ed25519.PrivateKey, sdk.Address, error) {
	if path == "" {
		path = cfg.Node.KeyFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read key file: %w", err)
	}
	return sdk.DecodePrivateKey(string(data))
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create a signer key file and print its address",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := keyFile
		if path == "" {
			path = cfg.Node.KeyFile
		}
		if _, err := os.Stat(path); err == nil && !forceKey {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		addr, priv, err := sdk.GenerateKey()
		if err != nil {
			return err
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return err
			}
		}
		if err := os.WriteFile(path, []byte(sdk.EncodePrivateKey(priv)+"\n"), 0o600); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", color.GreenString("✓"), path)
		fmt.Fprintln(out, addr.String())
		return nil
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address of a key file",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, addr, err := loadKey(keyFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr.String())
		return nil
	},
}

var (
	accountID    uint64
	accountOwner string
)

var accountCmd = &cobra.Command{
	Use:   "account <state|member|event|registration|proposal|vote>",
	Short: "Derive the account address of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		salt := contract.SaltFor(cfg.Node.ProgramID)
		addr, err := contract.DeriveAccount(salt, contract.AccountKind(args[0]), accountID, sdk.Address(accountOwner))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr.String())
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{keygenCmd, addressCmd} {
		c.Flags().StringVarP(&keyFile, "key", "k", "", "key file (default node.keyFile)")
	}
	keygenCmd.Flags().BoolVar(&forceKey, "force", false, "overwrite an existing key file")

	accountCmd.Flags().Uint64Var(&accountID, "id", 0, "event or proposal id")
	accountCmd.Flags().StringVar(&accountOwner, "owner", "", "member address for member, registration and vote accounts")
}

// parseID reads a decimal record id argument.
func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
