package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"presence_dao/contract"
	"presence_dao/contract/dao"
	"presence_dao/sdk"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <state|members|member|power|events|event|registrations|proposals|proposal|vote> [id|address] [address]",
	Short: "Inspect the local store",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		v, err := lookup(ctx, newEngine(st), args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if showJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}
		switch x := v.(type) {
		case *dao.State:
			printHeader(out, "DAO state")
			fmt.Fprintf(out, "Authority:   %s\n", x.Authority)
			fmt.Fprintf(out, "Members:     %d active / %d total\n", x.ActiveMembers, x.MemberCount)
			fmt.Fprintf(out, "Presence:    %s\n", x.TotalPresence)
			fmt.Fprintf(out, "Competence:  %s\n", x.TotalCompetence)
			fmt.Fprintf(out, "Events:      %d\n", x.EventCounter)
			fmt.Fprintf(out, "Proposals:   %d\n", x.ProposalCounter)
			if x.ActiveMembers < contract.MinActiveMembers {
				fmt.Fprintln(out, color.RedString("Frozen:      yes"))
			} else {
				fmt.Fprintln(out, color.GreenString("Frozen:      no"))
			}
		case []*dao.Member:
			printHeader(out, "Members")
			for _, m := range x {
				mark := color.GreenString("●")
				if !m.IsActive {
					mark = color.RedString("○")
				}
				fmt.Fprintf(out, "%s %s  P=%s  C=%s\n", mark, m.Authority, m.PresenceScore, m.CompetenceScore)
			}
		default:
			raw, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(raw))
		}
		return nil
	},
}

// lookup resolves a show query against the engine views.
func lookup(ctx context.Context, e *contract.Engine, args []string) (any, error) {
	arg := func(i int) (string, error) {
		if len(args) <= i {
			return "", fmt.Errorf("show %s needs %d argument(s)", args[0], i)
		}
		return args[i], nil
	}
	id := func() (uint64, error) {
		raw, err := arg(1)
		if err != nil {
			return 0, err
		}
		return parseID(raw)
	}
	addr := func(i int) (sdk.Address, error) {
		raw, err := arg(i)
		if err != nil {
			return "", err
		}
		return sdk.ParseAddress(raw)
	}

	switch args[0] {
	case "state":
		return e.State(ctx)
	case "members":
		return e.Members(ctx)
	case "member":
		a, err := addr(1)
		if err != nil {
			return nil, err
		}
		return e.Member(ctx, a)
	case "power":
		a, err := addr(1)
		if err != nil {
			return nil, err
		}
		w, err := e.MemberVotingPower(ctx, a)
		if err != nil {
			return nil, err
		}
		return map[string]string{"address": a.String(), "voting_power": w.String()}, nil
	case "events":
		return e.Events(ctx)
	case "event":
		n, err := id()
		if err != nil {
			return nil, err
		}
		return e.Event(ctx, n)
	case "registrations":
		n, err := id()
		if err != nil {
			return nil, err
		}
		return e.Registrations(ctx, n)
	case "proposals":
		return e.Proposals(ctx)
	case "proposal":
		n, err := id()
		if err != nil {
			return nil, err
		}
		return e.Proposal(ctx, n)
	case "vote":
		n, err := id()
		if err != nil {
			return nil, err
		}
		a, err := addr(2)
		if err != nil {
			return nil, err
		}
		return e.Vote(ctx, n, a)
	default:
		return nil, fmt.Errorf("unknown view %q", args[0])
	}
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print raw JSON")
}
