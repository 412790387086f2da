package contract

import (
	"fmt"

	"presence_dao/contract/dao"
	"presence_dao/sdk"
)

// -----------------------------------------------------------------------------
// Guards
// -----------------------------------------------------------------------------

func isFrozen(st *dao.State) bool {
	return st.ActiveMembers < MinActiveMembers
}

func requireNotFrozen(st *dao.State) error {
	if isFrozen(st) {
		return fmt.Errorf("%w: %d active members", ErrDaoFrozen, st.ActiveMembers)
	}
	return nil
}

func (tx *txContext) requireAuthority(st *dao.State) error {
	if tx.sender() != st.Authority {
		return fmt.Errorf("%w: %s is not the authority", ErrUnauthorized, tx.sender().Short())
	}
	return nil
}

// requireActiveMember loads addr and fails unless it is an active member.
func (tx *txContext) requireActiveMember(addr sdk.Address) (*dao.Member, error) {
	m, err := tx.loadMember(addr)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotActive, addr.Short())
	}
	return m, nil
}

// noteFreeze logs a df line whenever the freeze state flips.
func (tx *txContext) noteFreeze(activeBefore uint32, st *dao.State) {
	was := activeBefore < MinActiveMembers
	now := isFrozen(st)
	if was != now {
		tx.emitFreezeEvent(now, st.ActiveMembers)
	}
}

// -----------------------------------------------------------------------------
// Instructions
// -----------------------------------------------------------------------------

// initialize creates the singleton state with the sender as authority.
func (tx *txContext) initialize(args *InitArgs) error {
	exists, err := tx.stateExists()
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}
	st := &dao.State{
		Authority:     tx.sender(),
		Salt:          tx.salt,
		InitializedAt: tx.now(),
	}
	seeds := []struct {
		units int64
		dst   *dao.Score
	}{
		{args.GenesisPresence, &st.GenesisPresence},
		{args.GenesisCompetence, &st.GenesisCompetence},
		{args.CooptPresence, &st.CooptPresence},
		{args.CooptCompetence, &st.CooptCompetence},
	}
	for _, seed := range seeds {
		if seed.units < 0 {
			return fmt.Errorf("%w: negative seed score", ErrInvalidInput)
		}
		if *seed.dst, err = unitsToScore(seed.units); err != nil {
			return err
		}
	}
	tx.saveState(st)
	tx.emitInitEvent(st.Authority)
	return nil
}

// addGenesisMember is the only direct way in. Once genesis is full any further
// member has to come through a passed critical proposal.
func (tx *txContext) addGenesisMember(candidate sdk.Address) error {
	st, err := tx.loadState()
	if err != nil {
		return err
	}
	if tx.sender() != st.Authority {
		if st.GenesisCount >= MaxGenesisMembers {
			return fmt.Errorf("%w: genesis closed, membership requires a passed critical proposal", ErrUnauthorizedMembership)
		}
		return tx.requireAuthority(st)
	}
	if st.GenesisCount >= MaxGenesisMembers {
		return fmt.Errorf("%w: %d genesis members", ErrGenesisFull, st.GenesisCount)
	}
	return tx.createMember(st, candidate, true)
}

// coopt admits target as a regular member. Only proposal finalization calls it.
func (tx *txContext) coopt(st *dao.State, target sdk.Address) error {
	if err := requireNotFrozen(st); err != nil {
		return err
	}
	return tx.createMember(st, target, false)
}

func (tx *txContext) createMember(st *dao.State, addr sdk.Address, genesis bool) error {
	exists, err := tx.memberExists(addr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: member %s", ErrDuplicateKey, addr.Short())
	}

	presence, competence := st.CooptPresence, st.CooptCompetence
	if genesis {
		presence, competence = st.GenesisPresence, st.GenesisCompetence
	}
	next := *st
	if next.TotalPresence, err = addScore(st.TotalPresence, presence); err != nil {
		return err
	}
	if next.TotalCompetence, err = addScore(st.TotalCompetence, competence); err != nil {
		return err
	}
	if next.MemberCount, err = incU32(st.MemberCount); err != nil {
		return err
	}
	if next.ActiveMembers, err = incU32(st.ActiveMembers); err != nil {
		return err
	}
	if genesis {
		next.GenesisCount++
	}
	if err := addToIndex(tx.st, idxMembers, addr.String()); err != nil {
		return err
	}

	tx.saveMember(&dao.Member{
		Authority:       addr,
		PresenceScore:   presence,
		CompetenceScore: competence,
		IsActive:        true,
		IsGenesis:       genesis,
		JoinedAt:        tx.now(),
	})
	*st = next
	tx.saveState(st)
	tx.emitJoinedEvent(addr, genesis)
	tx.noteFreeze(st.ActiveMembers-1, st)
	return nil
}

// setMemberActive flips IsActive. Scores stay on the member and in the totals.
// Reactivation is allowed while frozen so the dao can recover.
func (tx *txContext) setMemberActive(st *dao.State, addr sdk.Address, active bool) error {
	m, err := tx.loadMember(addr)
	if err != nil {
		return err
	}
	if m.IsActive == active {
		return fmt.Errorf("%w: member %s already has active=%t", ErrInvalidInput, addr.Short(), active)
	}
	before := st.ActiveMembers
	count := st.ActiveMembers
	if active {
		count, err = incU32(count)
	} else {
		count, err = decU32(count)
	}
	if err != nil {
		return err
	}
	updated := *m
	updated.IsActive = active
	tx.saveMember(&updated)
	st.ActiveMembers = count
	tx.saveState(st)
	tx.emitActiveChangedEvent(addr, active)
	tx.noteFreeze(before, st)
	return nil
}

// setMemberActiveByAuthority backs the deactivate_member and reactivate_member instructions.
func (tx *txContext) setMemberActiveByAuthority(addr sdk.Address, active bool) error {
	st, err := tx.loadState()
	if err != nil {
		return err
	}
	if err := tx.requireAuthority(st); err != nil {
		return err
	}
	return tx.setMemberActive(st, addr, active)
}

// updateCompetence applies a peer review delta. Competence never drops below
// zero: a larger negative delta removes what is left.
func (tx *txContext) updateCompetence(args *UpdateCompetenceArgs) (dao.Score, error) {
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
	if args.Member == tx.sender() {
		return 0, fmt.Errorf("%w: members cannot review themselves", ErrInvalidInput)
	}
	target, err := tx.loadMember(args.Member)
	if err != nil {
		return 0, err
	}
	delta, err := unitsToScore(args.Delta)
	if err != nil {
		return 0, err
	}
	if delta < 0 && -delta > target.CompetenceScore {
		delta = -clampNonNegative(target.CompetenceScore)
	}

	updated := *target
	if updated.CompetenceScore, err = addScore(target.CompetenceScore, delta); err != nil {
		return 0, err
	}
	total, err := addScore(st.TotalCompetence, delta)
	if err != nil {
		return 0, err
	}
	tx.saveMember(&updated)
	st.TotalCompetence = total
	tx.saveState(st)
	tx.emitCompetenceEvent(args.Member, tx.sender(), delta)
	return delta, nil
}
