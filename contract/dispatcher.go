package contract

import (
	"context"
	"fmt"
	"sync"

	"presence_dao/contract/dao"
	"presence_dao/sdk"

	"go.uber.org/zap"
)

// Instruction actions.
const (
	ActionInitialize        = "initialize"
	ActionAddGenesisMember  = "add_genesis_member"
	ActionCreateEvent       = "create_event"
	ActionRegisterForEvent  = "register_for_event"
	ActionWithdrawFromEvent = "withdraw_from_event"
	ActionFinalizeEvent     = "finalize_event"
	ActionUpdateCompetence  = "update_competence"
	ActionCreateProposal    = "create_proposal"
	ActionVote              = "vote"
	ActionFinalizeProposal  = "finalize_proposal"
	ActionCancelProposal    = "cancel_proposal"
	ActionDeactivateMember  = "deactivate_member"
	ActionReactivateMember  = "reactivate_member"
)

// Actions lists every instruction the engine accepts.
var Actions = []string{
	ActionInitialize,
	ActionAddGenesisMember,
	ActionCreateEvent,
	ActionRegisterForEvent,
	ActionWithdrawFromEvent,
	ActionFinalizeEvent,
	ActionUpdateCompetence,
	ActionCreateProposal,
	ActionVote,
	ActionFinalizeProposal,
	ActionCancelProposal,
	ActionDeactivateMember,
	ActionReactivateMember,
}

// Instruction is one signed call. Accounts is optional; when present it must
// list the derived addresses of the records the action touches, in order.
type Instruction struct {
	Action   string        `json:"action"`
	Payload  string        `json:"payload"`
	Accounts []sdk.Address `json:"accounts,omitempty"`
}

// Result describes a committed instruction.
type Result struct {
	TxID   string   `json:"tx_id"`
	Action string   `json:"action"`
	Ret    string   `json:"ret"`
	ID     uint64   `json:"id,omitempty"`
	Logs   []string `json:"logs"`
	Writes int      `json:"writes"`
}

// Engine executes instructions one at a time against a store.
type Engine struct {
	mu        sync.Mutex
	store     sdk.Store
	programID string
	salt      [32]byte
	logger    *zap.Logger
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgramID changes the salt used for account addresses.
func WithProgramID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.programID = id
		}
	}
}

func NewEngine(store sdk.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		programID: DefaultProgramID,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.salt = SaltFor(e.programID)
	return e
}

// Salt returns the account address salt of this deployment.
func (e *Engine) Salt() [32]byte {
	return e.salt
}

func (e *Engine) ProgramID() string {
	return e.programID
}

// Execute runs ix as one atomic transaction. On error nothing is written.
func (e *Engine) Execute(ctx context.Context, env sdk.Env, ix Instruction) (*Result, error) {
	if !env.Sender.Address.IsValid() {
		return nil, fmt.Errorf("%w: invalid sender %q", ErrUnauthorized, env.Sender.Address)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx := newTxContext(ctx, e.store, env, e.salt, ix.Accounts)
	res := &Result{TxID: env.TxId, Action: ix.Action}

	err := e.run(tx, ix, res)
	if err != nil {
		e.logger.Info("instruction rejected",
			zap.String("action", ix.Action),
			zap.String("tx", env.TxId),
			zap.String("sender", env.Sender.Address.Short()),
			zap.String("code", Code(err)),
			zap.Error(err))
		return nil, err
	}

	batch := tx.st.batch()
	if err := e.store.Apply(ctx, batch); err != nil {
		e.logger.Error("commit failed",
			zap.String("action", ix.Action),
			zap.String("tx", env.TxId),
			zap.Error(err))
		return nil, fmt.Errorf("commit %s: %w", ix.Action, err)
	}
	res.Logs = tx.logs
	res.Writes = batch.Len()

	e.logger.Debug("instruction committed",
		zap.String("action", ix.Action),
		zap.String("tx", env.TxId),
		zap.String("sender", env.Sender.Address.Short()),
		zap.Int("writes", res.Writes))
	for _, line := range tx.logs {
		e.logger.Debug("contract event", zap.String("tx", env.TxId), zap.String("line", line))
	}
	return res, nil
}

func (e *Engine) run(tx *txContext, ix Instruction, res *Result) error {
	if len(ix.Accounts) > 0 {
		keys, err := InstructionKeys(ix.Action, tx.sender(), ix.Payload)
		if err != nil {
			return err
		}
		if err := tx.requireAccounts(keys...); err != nil {
			return err
		}
	}

	switch ix.Action {
	case ActionInitialize:
		args, err := decodeInitArgs(ix.Payload)
		if err != nil {
			return err
		}
		if err := tx.initialize(args); err != nil {
			return err
		}
		res.Ret = "initialized"

	case ActionAddGenesisMember:
		candidate, err := decodeAddressPayload(ix.Payload, "candidate")
		if err != nil {
			return err
		}
		if err := tx.addGenesisMember(candidate); err != nil {
			return err
		}
		res.Ret = "genesis member added: " + candidate.String()

	case ActionCreateEvent:
		args, err := decodeCreateEventArgs(ix.Payload)
		if err != nil {
			return err
		}
		id, err := tx.createEvent(args)
		if err != nil {
			return err
		}
		res.ID = id
		res.Ret = "event created: " + UInt64ToString(id)

	case ActionRegisterForEvent:
		id, err := decodeIDPayload(ix.Payload, "event id")
		if err != nil {
			return err
		}
		if err := tx.registerForEvent(id); err != nil {
			return err
		}
		res.ID = id
		res.Ret = "registered"

	case ActionWithdrawFromEvent:
		id, err := decodeIDPayload(ix.Payload, "event id")
		if err != nil {
			return err
		}
		penalty, err := tx.withdrawFromEvent(id)
		if err != nil {
			return err
		}
		res.ID = id
		res.Ret = "withdrawn, penalty " + penalty.String()

	case ActionFinalizeEvent:
		args, err := decodeFinalizeEventArgs(ix.Payload)
		if err != nil {
			return err
		}
		if err := tx.finalizeEvent(args); err != nil {
			return err
		}
		res.ID = args.EventID
		res.Ret = "event finalized"

	case ActionUpdateCompetence:
		args, err := decodeUpdateCompetenceArgs(ix.Payload)
		if err != nil {
			return err
		}
		applied, err := tx.updateCompetence(args)
		if err != nil {
			return err
		}
		res.Ret = "competence updated by " + applied.String()

	case ActionCreateProposal:
		args, err := decodeCreateProposalArgs(ix.Payload)
		if err != nil {
			return err
		}
		id, err := tx.createProposal(args)
		if err != nil {
			return err
		}
		res.ID = id
		res.Ret = "proposal created: " + UInt64ToString(id)

	case ActionVote:
		args, err := decodeVoteArgs(ix.Payload)
		if err != nil {
			return err
		}
		weight, err := tx.castVote(args)
		if err != nil {
			return err
		}
		res.ID = args.ProposalID
		res.Ret = "voted with weight " + weight.String()

	case ActionFinalizeProposal:
		id, err := decodeIDPayload(ix.Payload, "proposal id")
		if err != nil {
			return err
		}
		status, err := tx.finalizeProposal(id)
		if err != nil {
			return err
		}
		res.ID = id
		res.Ret = "proposal " + status.String()

	case ActionCancelProposal:
		id, err := decodeIDPayload(ix.Payload, "proposal id")
		if err != nil {
			return err
		}
		if err := tx.cancelProposal(id); err != nil {
			return err
		}
		res.ID = id
		res.Ret = "proposal " + dao.ProposalCancelled.String()

	case ActionDeactivateMember, ActionReactivateMember:
		addr, err := decodeAddressPayload(ix.Payload, "member")
		if err != nil {
			return err
		}
		active := ix.Action == ActionReactivateMember
		if err := tx.setMemberActiveByAuthority(addr, active); err != nil {
			return err
		}
		res.Ret = fmt.Sprintf("member %s active=%t", addr, active)

	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, ix.Action)
	}
	return nil
}

// InstructionKeys lists the storage keys an instruction reads or writes, in
// the order clients must send their derived account addresses.
func InstructionKeys(action string, sender sdk.Address, payload string) ([]string, error) {
	switch action {
	case ActionInitialize:
		return []string{stateKey()}, nil
	case ActionCreateEvent, ActionCreateProposal:
		return []string{stateKey(), memberKey(sender)}, nil
	case ActionAddGenesisMember, ActionDeactivateMember, ActionReactivateMember:
		addr, err := decodeAddressPayload(payload, "member")
		if err != nil {
			return nil, err
		}
		return []string{stateKey(), memberKey(addr)}, nil
	case ActionRegisterForEvent, ActionWithdrawFromEvent:
		id, err := decodeIDPayload(payload, "event id")
		if err != nil {
			return nil, err
		}
		return []string{stateKey(), eventKey(id), registrationKey(id, sender), memberKey(sender)}, nil
	case ActionFinalizeEvent:
		args, err := decodeFinalizeEventArgs(payload)
		if err != nil {
			return nil, err
		}
		return []string{stateKey(), eventKey(args.EventID)}, nil
	case ActionUpdateCompetence:
		args, err := decodeUpdateCompetenceArgs(payload)
		if err != nil {
			return nil, err
		}
		return []string{stateKey(), memberKey(sender), memberKey(args.Member)}, nil
	case ActionVote:
		args, err := decodeVoteArgs(payload)
		if err != nil {
			return nil, err
		}
		return []string{stateKey(), proposalKey(args.ProposalID), voteKey(args.ProposalID, sender), memberKey(sender)}, nil
	case ActionFinalizeProposal, ActionCancelProposal:
		id, err := decodeIDPayload(payload, "proposal id")
		if err != nil {
			return nil, err
		}
		return []string{stateKey(), proposalKey(id)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
}

// InstructionAccounts derives the account addresses a client attaches to ix.
func InstructionAccounts(salt [32]byte, action string, sender sdk.Address, payload string) ([]sdk.Address, error) {
	keys, err := InstructionKeys(action, sender, payload)
	if err != nil {
		return nil, err
	}
	out := make([]sdk.Address, len(keys))
	for i, key := range keys {
		out[i] = AccountAddress(salt, key)
	}
	return out, nil
}
