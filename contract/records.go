package contract

import (
	"fmt"

	"presence_dao/contract/dao"
	"presence_dao/sdk"
)

// -----------------------------------------------------------------------------
// State
// -----------------------------------------------------------------------------

func (tx *txContext) stateExists() (bool, error) {
	if tx.state != nil {
		return true, nil
	}
	ptr, err := tx.st.Get(stateKey())
	if err != nil {
		return false, err
	}
	return ptr != nil, nil
}

func (tx *txContext) loadState() (*dao.State, error) {
	if tx.state != nil {
		return tx.state, nil
	}
	ptr, err := tx.st.Get(stateKey())
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, ErrNotInitialized
	}
	st, err := dao.DecodeState([]byte(*ptr))
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	tx.state = st
	return st, nil
}

func (tx *txContext) saveState(st *dao.State) {
	tx.state = st
	tx.st.Set(stateKey(), string(dao.EncodeState(st)))
}

// -----------------------------------------------------------------------------
// Members
// -----------------------------------------------------------------------------

// loadMember returns ErrNotFound when the address never joined.
func (tx *txContext) loadMember(addr sdk.Address) (*dao.Member, error) {
	if m, ok := tx.members[addr]; ok {
		return m, nil
	}
	ptr, err := tx.st.Get(memberKey(addr))
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, fmt.Errorf("%w: member %s", ErrNotFound, addr.Short())
	}
	m, err := dao.DecodeMember([]byte(*ptr))
	if err != nil {
		return nil, fmt.Errorf("decode member %s: %w", addr.Short(), err)
	}
	tx.members[addr] = m
	return m, nil
}

func (tx *txContext) memberExists(addr sdk.Address) (bool, error) {
	if _, ok := tx.members[addr]; ok {
		return true, nil
	}
	ptr, err := tx.st.Get(memberKey(addr))
	if err != nil {
		return false, err
	}
	return ptr != nil, nil
}

func (tx *txContext) saveMember(m *dao.Member) {
	tx.members[m.Authority] = m
	tx.st.Set(memberKey(m.Authority), string(dao.EncodeMember(m)))
}

// -----------------------------------------------------------------------------
// Events and registrations
// -----------------------------------------------------------------------------

func (tx *txContext) loadEvent(id uint64) (*dao.Event, error) {
	ptr, err := tx.st.Get(eventKey(id))
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, fmt.Errorf("%w: event %d", ErrNotFound, id)
	}
	ev, err := dao.DecodeEvent([]byte(*ptr))
	if err != nil {
		return nil, fmt.Errorf("decode event %d: %w", id, err)
	}
	return ev, nil
}

func (tx *txContext) saveEvent(ev *dao.Event) {
	tx.st.Set(eventKey(ev.ID), string(dao.EncodeEvent(ev)))
}

// loadRegistration returns nil without error when the pair has no record.
func (tx *txContext) loadRegistration(eventID uint64, addr sdk.Address) (*dao.Registration, error) {
	ptr, err := tx.st.Get(registrationKey(eventID, addr))
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, nil
	}
	reg, err := dao.DecodeRegistration([]byte(*ptr))
	if err != nil {
		return nil, fmt.Errorf("decode registration %d/%s: %w", eventID, addr.Short(), err)
	}
	return reg, nil
}

func (tx *txContext) saveRegistration(reg *dao.Registration) {
	tx.st.Set(registrationKey(reg.EventID, reg.Member), string(dao.EncodeRegistration(reg)))
}

// -----------------------------------------------------------------------------
// Proposals and votes
// -----------------------------------------------------------------------------

func (tx *txContext) loadProposal(id uint64) (*dao.Proposal, error) {
	ptr, err := tx.st.Get(proposalKey(id))
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, fmt.Errorf("%w: proposal %d", ErrNotFound, id)
	}
	prpsl, err := dao.DecodeProposal([]byte(*ptr))
	if err != nil {
		return nil, fmt.Errorf("decode proposal %d: %w", id, err)
	}
	return prpsl, nil
}

func (tx *txContext) saveProposal(prpsl *dao.Proposal) {
	tx.st.Set(proposalKey(prpsl.ID), string(dao.EncodeProposal(prpsl)))
}

func (tx *txContext) loadVote(proposalID uint64, addr sdk.Address) (*dao.VoteRecord, error) {
	ptr, err := tx.st.Get(voteKey(proposalID, addr))
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, nil
	}
	v, err := dao.DecodeVoteRecord([]byte(*ptr))
	if err != nil {
		return nil, fmt.Errorf("decode vote %d/%s: %w", proposalID, addr.Short(), err)
	}
	return v, nil
}

func (tx *txContext) saveVote(v *dao.VoteRecord) {
	tx.st.Set(voteKey(v.ProposalID, v.Voter), string(dao.EncodeVoteRecord(v)))
}
