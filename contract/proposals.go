package contract

import (
	"errors"
	"fmt"

	"presence_dao/contract/dao"
	"presence_dao/sdk"
)

// -----------------------------------------------------------------------------
// Proposal creation
// -----------------------------------------------------------------------------

func validateProposalArgs(args *CreateProposalArgs) error {
	if args.Type != dao.ProposalCritical && args.Type != dao.ProposalOperational {
		return fmt.Errorf("%w: proposal type required", ErrInvalidInput)
	}
	if args.Title == "" || len(args.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title must be 1-%d bytes", ErrInvalidInput, MaxTitleLength)
	}
	if len(args.Description) > MaxProposalDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d bytes", ErrInvalidInput, MaxProposalDescriptionLength)
	}
	if args.VotingPeriod < MinVotingPeriodSeconds || args.VotingPeriod > MaxVotingPeriodSeconds {
		return fmt.Errorf("%w: voting period must be %d-%d seconds", ErrInvalidInput, MinVotingPeriodSeconds, MaxVotingPeriodSeconds)
	}
	if args.Action != dao.ActionNone && args.Type != dao.ProposalCritical {
		return fmt.Errorf("%w: membership actions need a critical proposal", ErrInvalidInput)
	}
	if args.Action != dao.ActionNone && !args.Target.IsValid() {
		return fmt.Errorf("%w: action %s needs a target", ErrInvalidInput, args.Action)
	}
	return nil
}

// totalActivePower sums the voting power of every active member right now.
func (tx *txContext) totalActivePower(st *dao.State) (dao.Score, error) {
	addrs, err := listIndex(tx.st, idxMembers)
	if err != nil {
		return 0, err
	}
	var total dao.Score
	for _, raw := range addrs {
		m, err := tx.loadMember(sdk.Address(raw))
		if err != nil {
			return 0, err
		}
		if !m.IsActive {
			continue
		}
		w := VotingPower(m.PresenceScore, m.CompetenceScore, st.TotalPresence, st.TotalCompetence)
		if total, err = addScore(total, w); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// createProposal stores a new Active proposal with the power snapshot taken now.
func (tx *txContext) createProposal(args *CreateProposalArgs) (uint64, error) {
	st, err := tx.loadState()
	if err != nil {
		return 0, err
	}
	if err := requireNotFrozen(st); err != nil {
		return 0, err
	}
	if _, err := tx.requireActiveMember(tx.sender()); err != nil {
		return 0, err
	}
	if err := validateProposalArgs(args); err != nil {
		return 0, err
	}
	if args.Action != dao.ActionNone {
		if err := tx.checkProposalAction(st, args.Action, args.Target); err != nil {
			return 0, err
		}
	}
	snapshot, err := tx.totalActivePower(st)
	if err != nil {
		return 0, err
	}

	id := st.ProposalCounter
	next, err := incU64(st.ProposalCounter)
	if err != nil {
		return 0, err
	}
	prpsl := &dao.Proposal{
		ID:                 id,
		Proposer:           tx.sender(),
		Title:              args.Title,
		Description:        args.Description,
		Type:               args.Type,
		TotalPowerSnapshot: snapshot,
		CreatedAt:          tx.now(),
		VotingEndsAt:       tx.now() + args.VotingPeriod,
		Status:             dao.ProposalActive,
		Action:             args.Action,
		Target:             args.Target,
	}
	tx.saveProposal(prpsl)
	st.ProposalCounter = next
	tx.saveState(st)
	tx.emitProposalCreatedEvent(id, prpsl.Proposer)
	return id, nil
}

// -----------------------------------------------------------------------------
// Finalization
// -----------------------------------------------------------------------------

// Passes evaluates the threshold: critical needs more than half of the
// snapshot, operational needs more for than against. A tie is rejected.
func Passes(prpsl *dao.Proposal) bool {
	switch prpsl.Type {
	case dao.ProposalCritical:
		return prpsl.VotesFor > prpsl.TotalPowerSnapshot/2
	case dao.ProposalOperational:
		return prpsl.VotesFor > prpsl.VotesAgainst
	default:
		return false
	}
}

// finalizeProposal closes an Active proposal after its voting window. It is
// open to any signer and not gated by the freeze.
func (tx *txContext) finalizeProposal(id uint64) (dao.ProposalStatus, error) {
	st, err := tx.loadState()
	if err != nil {
		return 0, err
	}
	prpsl, err := tx.loadProposal(id)
	if err != nil {
		return 0, err
	}
	if prpsl.Status != dao.ProposalActive {
		return 0, fmt.Errorf("%w: proposal %d is %s", ErrProposalNotActive, id, prpsl.Status)
	}
	if tx.now() < prpsl.VotingEndsAt {
		return 0, fmt.Errorf("%w: proposal %d ends at %d", ErrVotingNotEnded, id, prpsl.VotingEndsAt)
	}

	prpsl.Status = dao.ProposalRejected
	if Passes(prpsl) {
		prpsl.Status = dao.ProposalPassed
	}
	prpsl.FinalizedAt = tx.now()
	tx.emitProposalStateChangedEvent(id, prpsl.Status)

	if prpsl.Status == dao.ProposalPassed && prpsl.Action != dao.ActionNone {
		result, err := tx.applyProposalAction(st, prpsl)
		if err != nil {
			return 0, err
		}
		tx.emitProposalResultEvent(id, result)
	}
	tx.saveProposal(prpsl)
	return prpsl.Status, nil
}

// checkProposalAction verifies an action can run against the current state.
func (tx *txContext) checkProposalAction(st *dao.State, action dao.ProposalAction, target sdk.Address) error {
	exists, err := tx.memberExists(target)
	if err != nil {
		return err
	}
	switch action {
	case dao.ActionCoopt:
		if err := requireNotFrozen(st); err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s is already a member", ErrDuplicateKey, target.Short())
		}
		return nil
	case dao.ActionDeactivate, dao.ActionReactivate:
		if !exists {
			return fmt.Errorf("%w: member %s", ErrNotFound, target.Short())
		}
		m, err := tx.loadMember(target)
		if err != nil {
			return err
		}
		want := action == dao.ActionDeactivate
		if m.IsActive != want {
			return fmt.Errorf("%w: member %s already has active=%t", ErrInvalidInput, target.Short(), !want)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %d", ErrInvalidInput, action)
	}
}

// domainPrecondition reports errors that leave a passed proposal unapplied
// instead of aborting its finalization.
func domainPrecondition(err error) bool {
	return errors.Is(err, ErrDaoFrozen) || errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput)
}

// applyProposalAction runs the membership change a passed critical proposal
// carries. Preconditions are checked before any write; when they fail the
// proposal stays Passed with ActionApplied false and the reason is returned.
func (tx *txContext) applyProposalAction(st *dao.State, prpsl *dao.Proposal) (string, error) {
	if err := tx.checkProposalAction(st, prpsl.Action, prpsl.Target); err != nil {
		if domainPrecondition(err) {
			return "skipped:" + Code(err), nil
		}
		return "", err
	}
	var err error
	switch prpsl.Action {
	case dao.ActionCoopt:
		err = tx.coopt(st, prpsl.Target)
	case dao.ActionDeactivate:
		err = tx.setMemberActive(st, prpsl.Target, false)
	case dao.ActionReactivate:
		err = tx.setMemberActive(st, prpsl.Target, true)
	}
	if err != nil {
		return "", err
	}
	prpsl.ActionApplied = true
	return prpsl.Action.String() + ":" + prpsl.Target.String(), nil
}

// cancelProposal lets the authority withdraw an Active proposal.
func (tx *txContext) cancelProposal(id uint64) error {
	st, err := tx.loadState()
	if err != nil {
		return err
	}
	if err := tx.requireAuthority(st); err != nil {
		return err
	}
	prpsl, err := tx.loadProposal(id)
	if err != nil {
		return err
	}
	if prpsl.Status != dao.ProposalActive {
		return fmt.Errorf("%w: proposal %d is %s", ErrProposalNotActive, id, prpsl.Status)
	}
	prpsl.Status = dao.ProposalCancelled
	prpsl.FinalizedAt = tx.now()
	tx.saveProposal(prpsl)
	tx.emitProposalStateChangedEvent(id, prpsl.Status)
	return nil
}
