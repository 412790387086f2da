package cli

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"presence_dao/contract"
	"presence_dao/internal/api"
	"presence_dao/internal/store/memory"
	"presence_dao/internal/store/sqlstore"
	"presence_dao/sdk"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type nodeStore interface {
	sdk.Store
	Close() error
}

// openStore opens the configured backend. The memory driver treats the DSN
// as an optional snapshot file.
func openStore(ctx context.Context) (nodeStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		if cfg.Store.DSN == "" {
			return memory.New(), nil
		}
		return memory.Open(cfg.Store.DSN)
	default:
		return sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, logger)
	}
}

func newEngine(st sdk.Store) *contract.Engine {
	return contract.NewEngine(st, contract.WithLogger(logger), contract.WithProgramID(cfg.Node.ProgramID))
}

var (
	txKey      string
	txRemote   string
	txAt       int64
	txAccounts bool
)

var txCmd = &cobra.Command{
	Use:   "tx <action> [payload]",
	Short: "Sign and execute one instruction",
	Long: "Executes against the local store, or posts a signed token to a running node with --remote.\n\n" +
		"Actions: " + strings.Join(contract.Actions, ", "),
	Example: "  daod tx initialize '3|10|1|1'\n" +
		"  daod tx create_event '1767225600|Monthly assembly'\n" +
		"  daod tx vote '0|true' --remote http://localhost:8080",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, sender, err := loadKey(txKey)
		if err != nil {
			return err
		}
		ix := contract.Instruction{Action: args[0]}
		if len(args) == 2 {
			ix.Payload = args[1]
		}
		if txAccounts {
			ix.Accounts, err = contract.InstructionAccounts(contract.SaltFor(cfg.Node.ProgramID), ix.Action, sender, ix.Payload)
			if err != nil {
				return err
			}
		}

		var res *contract.Result
		if txRemote != "" {
			res, err = postTx(cmd.Context(), txRemote, priv, ix)
		} else {
			res, err = execLocal(cmd.Context(), sender, ix)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s %s\n", color.GreenString("✓"), res.Action, res.Ret)
		for _, line := range res.Logs {
			fmt.Fprintf(out, "  %s\n", color.HiBlackString(line))
		}
		return nil
	},
}

func execLocal(ctx context.Context, sender sdk.Address, ix contract.Instruction) (*contract.Result, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	ts := txAt
	if ts == 0 {
		ts = time.Now().Unix()
	}
	res, err := newEngine(st).Execute(ctx, sdk.NewEnv(sender, ts, uuid.NewString()), ix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", contract.Code(err), err)
	}
	return res, nil
}

// postTx sends ix to a node's /api/tx endpoint.
func postTx(ctx context.Context, base string, priv ed25519.PrivateKey, ix contract.Instruction) (*contract.Result, error) {
	token, body, err := api.SignInstruction(priv, ix, uuid.NewString(), time.Now(), time.Minute)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/api/tx", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Code != "" {
			return nil, fmt.Errorf("%s: %s", e.Code, e.Error)
		}
		return nil, fmt.Errorf("node returned %s", resp.Status)
	}
	var res contract.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

func init() {
	txCmd.Flags().StringVarP(&txKey, "key", "k", "", "signer key file (default node.keyFile)")
	txCmd.Flags().StringVar(&txRemote, "remote", "", "node base URL, e.g. http://localhost:8080")
	txCmd.Flags().Int64Var(&txAt, "at", 0, "ledger timestamp for local execution (default now)")
	txCmd.Flags().BoolVar(&txAccounts, "accounts", false, "attach the derived account list")
}
