package contract

import (
	"fmt"

	"presence_dao/contract/dao"
	"presence_dao/sdk"
)

// createEvent opens a new track session and returns its id.
func (tx *txContext) createEvent(args *CreateEventArgs) (uint64, error) {
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
	if args.StartTime <= tx.now() {
		return 0, fmt.Errorf("%w: start time %d is not in the future", ErrInvalidInput, args.StartTime)
	}
	if len(args.Description) > MaxEventDescriptionLength {
		return 0, fmt.Errorf("%w: description exceeds %d bytes", ErrInvalidInput, MaxEventDescriptionLength)
	}

	id := st.EventCounter
	next, err := incU64(st.EventCounter)
	if err != nil {
		return 0, err
	}
	ev := &dao.Event{
		ID:          id,
		Creator:     tx.sender(),
		StartTime:   args.StartTime,
		Description: args.Description,
		CreatedAt:   tx.now(),
	}
	tx.saveEvent(ev)
	st.EventCounter = next
	tx.saveState(st)
	tx.emitEventCreated(id, ev.Creator, ev.StartTime)
	return id, nil
}

// withinLateWindow reports whether now is less than a day before start.
func withinLateWindow(ev *dao.Event, now int64) bool {
	return ev.StartTime-now < LateWindowSeconds
}

// registerForEvent records the sender for an open event. Any existing record,
// withdrawn ones included, blocks a second registration.
func (tx *txContext) registerForEvent(eventID uint64) error {
	st, err := tx.loadState()
	if err != nil {
		return err
	}
	if err := requireNotFrozen(st); err != nil {
		return err
	}
	ev, err := tx.loadEvent(eventID)
	if err != nil {
		return err
	}
	switch ev.Phase(tx.now()) {
	case dao.EventFinalized:
		return fmt.Errorf("%w: event %d", ErrEventAlreadyFinalized, eventID)
	case dao.EventClosed:
		return fmt.Errorf("%w: event %d started at %d", ErrEventNotOpen, eventID, ev.StartTime)
	}
	reg, err := tx.loadRegistration(eventID, tx.sender())
	if err != nil {
		return err
	}
	if reg != nil {
		return fmt.Errorf("%w: already registered for event %d", ErrDuplicateKey, eventID)
	}
	if _, err := tx.requireActiveMember(tx.sender()); err != nil {
		return err
	}
	if ev.RegisteredCount, err = incU32(ev.RegisteredCount); err != nil {
		return err
	}
	if err := addToIndex(tx.st, eventRegistrantsIndex(eventID), tx.sender().String()); err != nil {
		return err
	}
	late := withinLateWindow(ev, tx.now())
	tx.saveRegistration(&dao.Registration{
		EventID:      eventID,
		Member:       tx.sender(),
		IsRegistered: true,
		IsLate:       late,
		RegisteredAt: tx.now(),
	})
	tx.saveEvent(ev)
	tx.emitRegistered(eventID, tx.sender(), late)
	return nil
}

// withdrawFromEvent cancels a registration before start. Inside the late
// window it costs one presence unit. The record is kept, flagged unregistered.
func (tx *txContext) withdrawFromEvent(eventID uint64) (dao.Score, error) {
	st, err := tx.loadState()
	if err != nil {
		return 0, err
	}
	if err := requireNotFrozen(st); err != nil {
		return 0, err
	}
	ev, err := tx.loadEvent(eventID)
	if err != nil {
		return 0, err
	}
	reg, err := tx.loadRegistration(eventID, tx.sender())
	if err != nil {
		return 0, err
	}
	if reg == nil || !reg.IsRegistered {
		return 0, fmt.Errorf("%w: not registered for event %d", ErrNotFound, eventID)
	}
	switch ev.Phase(tx.now()) {
	case dao.EventFinalized:
		return 0, fmt.Errorf("%w: event %d", ErrEventAlreadyFinalized, eventID)
	case dao.EventClosed:
		return 0, fmt.Errorf("%w: event %d started at %d", ErrEventNotOpen, eventID, ev.StartTime)
	}

	var penalty dao.Score
	if withinLateWindow(ev, tx.now()) {
		penalty = LatePenalty
		if err := tx.applyPresenceDelta(st, tx.sender(), -penalty); err != nil {
			return 0, err
		}
	}
	if ev.RegisteredCount, err = decU32(ev.RegisteredCount); err != nil {
		return 0, err
	}
	updated := *reg
	updated.IsRegistered = false
	tx.saveRegistration(&updated)
	tx.saveEvent(ev)
	tx.emitWithdrawn(eventID, tx.sender(), penalty)
	return penalty, nil
}

// applyPresenceDelta moves one member's presence and the aggregate together.
func (tx *txContext) applyPresenceDelta(st *dao.State, addr sdk.Address, delta dao.Score) error {
	m, err := tx.loadMember(addr)
	if err != nil {
		return err
	}
	updated := *m
	if updated.PresenceScore, err = addScore(m.PresenceScore, delta); err != nil {
		return err
	}
	total, err := addScore(st.TotalPresence, delta)
	if err != nil {
		return err
	}
	tx.saveMember(&updated)
	st.TotalPresence = total
	tx.saveState(st)
	return nil
}

// finalizeEvent settles attendance once. Registered and present earns the
// reward, registered and absent is ghosting, present without an active
// registration is an oubli. Members neither registered nor listed are untouched.
func (tx *txContext) finalizeEvent(args *FinalizeEventArgs) error {
	st, err := tx.loadState()
	if err != nil {
		return err
	}
	if err := requireNotFrozen(st); err != nil {
		return err
	}
	ev, err := tx.loadEvent(args.EventID)
	if err != nil {
		return err
	}
	if tx.sender() != ev.Creator && tx.sender() != st.Authority {
		return fmt.Errorf("%w: only the creator or authority can finalize event %d", ErrUnauthorized, ev.ID)
	}
	switch ev.Phase(tx.now()) {
	case dao.EventFinalized:
		return fmt.Errorf("%w: event %d", ErrEventAlreadyFinalized, ev.ID)
	case dao.EventOpen:
		return fmt.Errorf("%w: event %d starts at %d", ErrEventNotStarted, ev.ID, ev.StartTime)
	}

	present := make(map[sdk.Address]bool, len(args.Attendees))
	for _, addr := range args.Attendees {
		if present[addr] {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidInput, addr.Short())
		}
		exists, err := tx.memberExists(addr)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: attendee %s is not a member", ErrNotFound, addr.Short())
		}
		present[addr] = true
	}

	registrants, err := listIndex(tx.st, eventRegistrantsIndex(ev.ID))
	if err != nil {
		return err
	}
	settled := make(map[sdk.Address]bool, len(registrants))
	for _, raw := range registrants {
		addr := sdk.Address(raw)
		reg, err := tx.loadRegistration(ev.ID, addr)
		if err != nil {
			return err
		}
		if reg == nil || !reg.IsRegistered {
			continue
		}
		settled[addr] = true
		delta := -GhostingPenalty
		if present[addr] {
			delta = AttendanceReward
			updated := *reg
			updated.HasAttended = true
			tx.saveRegistration(&updated)
			if ev.AttendedCount, err = incU32(ev.AttendedCount); err != nil {
				return err
			}
		}
		if err := tx.applyPresenceDelta(st, addr, delta); err != nil {
			return err
		}
		tx.emitAttendance(ev.ID, addr, delta)
	}

	// attendees without an active registration, in list order
	for _, addr := range args.Attendees {
		if settled[addr] {
			continue
		}
		reg, err := tx.loadRegistration(ev.ID, addr)
		if err != nil {
			return err
		}
		updated := dao.Registration{EventID: ev.ID, Member: addr, RegisteredAt: tx.now()}
		if reg != nil {
			updated = *reg
		}
		updated.HasAttended = true
		tx.saveRegistration(&updated)
		if ev.AttendedCount, err = incU32(ev.AttendedCount); err != nil {
			return err
		}
		if err := tx.applyPresenceDelta(st, addr, -OubliPenalty); err != nil {
			return err
		}
		tx.emitAttendance(ev.ID, addr, -OubliPenalty)
	}

	ev.IsFinalized = true
	tx.saveEvent(ev)
	tx.emitEventFinalized(ev)
	return nil
}
