package contract

import (
	"context"
	"fmt"

	"presence_dao/contract/dao"
	"presence_dao/sdk"
)

// view runs fn against a throwaway overlay. Nothing is committed.
func (e *Engine) view(ctx context.Context, fn func(tx *txContext) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx := newTxContext(ctx, e.store, sdk.Env{}, e.salt, nil)
	return fn(tx)
}

func (e *Engine) State(ctx context.Context) (*dao.State, error) {
	var st *dao.State
	err := e.view(ctx, func(tx *txContext) error {
		var err error
		st, err = tx.loadState()
		return err
	})
	return st, err
}

func (e *Engine) IsFrozen(ctx context.Context) (bool, error) {
	st, err := e.State(ctx)
	if err != nil {
		return false, err
	}
	return isFrozen(st), nil
}

func (e *Engine) Member(ctx context.Context, addr sdk.Address) (*dao.Member, error) {
	var m *dao.Member
	err := e.view(ctx, func(tx *txContext) error {
		var err error
		m, err = tx.loadMember(addr)
		return err
	})
	return m, err
}

// Members returns every member in join order.
func (e *Engine) Members(ctx context.Context) ([]*dao.Member, error) {
	var out []*dao.Member
	err := e.view(ctx, func(tx *txContext) error {
		addrs, err := listIndex(tx.st, idxMembers)
		if err != nil {
			return err
		}
		out = make([]*dao.Member, 0, len(addrs))
		for _, raw := range addrs {
			m, err := tx.loadMember(sdk.Address(raw))
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

// MemberVotingPower is the weight addr would cast right now.
func (e *Engine) MemberVotingPower(ctx context.Context, addr sdk.Address) (dao.Score, error) {
	var w dao.Score
	err := e.view(ctx, func(tx *txContext) error {
		st, err := tx.loadState()
		if err != nil {
			return err
		}
		m, err := tx.loadMember(addr)
		if err != nil {
			return err
		}
		if m.IsActive {
			w = VotingPower(m.PresenceScore, m.CompetenceScore, st.TotalPresence, st.TotalCompetence)
		}
		return nil
	})
	return w, err
}

func (e *Engine) Event(ctx context.Context, id uint64) (*dao.Event, error) {
	var ev *dao.Event
	err := e.view(ctx, func(tx *txContext) error {
		var err error
		ev, err = tx.loadEvent(id)
		return err
	})
	return ev, err
}

// Events returns every event ordered by id.
func (e *Engine) Events(ctx context.Context) ([]*dao.Event, error) {
	var out []*dao.Event
	err := e.view(ctx, func(tx *txContext) error {
		st, err := tx.loadState()
		if err != nil {
			return err
		}
		out = make([]*dao.Event, 0, st.EventCounter)
		for id := uint64(0); id < st.EventCounter; id++ {
			ev, err := tx.loadEvent(id)
			if err != nil {
				return err
			}
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}

func (e *Engine) Registration(ctx context.Context, eventID uint64, addr sdk.Address) (*dao.Registration, error) {
	var reg *dao.Registration
	err := e.view(ctx, func(tx *txContext) error {
		var err error
		reg, err = tx.loadRegistration(eventID, addr)
		if err == nil && reg == nil {
			err = fmt.Errorf("%w: registration %d/%s", ErrNotFound, eventID, addr.Short())
		}
		return err
	})
	return reg, err
}

// Registrations lists the records of everyone who registered for an event.
func (e *Engine) Registrations(ctx context.Context, eventID uint64) ([]*dao.Registration, error) {
	var out []*dao.Registration
	err := e.view(ctx, func(tx *txContext) error {
		if _, err := tx.loadEvent(eventID); err != nil {
			return err
		}
		addrs, err := listIndex(tx.st, eventRegistrantsIndex(eventID))
		if err != nil {
			return err
		}
		out = make([]*dao.Registration, 0, len(addrs))
		for _, raw := range addrs {
			reg, err := tx.loadRegistration(eventID, sdk.Address(raw))
			if err != nil {
				return err
			}
			if reg != nil {
				out = append(out, reg)
			}
		}
		return nil
	})
	return out, err
}

func (e *Engine) Proposal(ctx context.Context, id uint64) (*dao.Proposal, error) {
	var prpsl *dao.Proposal
	err := e.view(ctx, func(tx *txContext) error {
		var err error
		prpsl, err = tx.loadProposal(id)
		return err
	})
	return prpsl, err
}

// Proposals returns every proposal ordered by id.
func (e *Engine) Proposals(ctx context.Context) ([]*dao.Proposal, error) {
	var out []*dao.Proposal
	err := e.view(ctx, func(tx *txContext) error {
		st, err := tx.loadState()
		if err != nil {
			return err
		}
		out = make([]*dao.Proposal, 0, st.ProposalCounter)
		for id := uint64(0); id < st.ProposalCounter; id++ {
			prpsl, err := tx.loadProposal(id)
			if err != nil {
				return err
			}
			out = append(out, prpsl)
		}
		return nil
	})
	return out, err
}

func (e *Engine) Vote(ctx context.Context, proposalID uint64, addr sdk.Address) (*dao.VoteRecord, error) {
	var v *dao.VoteRecord
	err := e.view(ctx, func(tx *txContext) error {
		var err error
		v, err = tx.loadVote(proposalID, addr)
		if err == nil && v == nil {
			err = fmt.Errorf("%w: vote %d/%s", ErrNotFound, proposalID, addr.Short())
		}
		return err
	})
	return v, err
}

// DeriveAddress returns the account address of a record in this deployment.
func (e *Engine) DeriveAddress(kind AccountKind, id uint64, owner sdk.Address) (sdk.Address, error) {
	return DeriveAccount(e.salt, kind, id, owner)
}
