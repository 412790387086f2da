package contract

import (
	"fmt"

	"presence_dao/contract/dao"
	"presence_dao/sdk"
)

// emitInitEvent marks the moment the dao got its authority.
func (tx *txContext) emitInitEvent(authority sdk.Address) {
	tx.log(fmt.Sprintf("di|by:%s", authority))
}

// emitJoinedEvent writes a tiny "mj" log so watchers know someone fresh joined.
func (tx *txContext) emitJoinedEvent(member sdk.Address, genesis bool) {
	tx.log(fmt.Sprintf(
		"mj|by:%s|g:%t",
		member,
		genesis,
	))
}

// emitActiveChangedEvent signals a deactivation or reactivation.
func (tx *txContext) emitActiveChangedEvent(member sdk.Address, active bool) {
	tx.log(fmt.Sprintf(
		"ma|by:%s|a:%t",
		member,
		active,
	))
}

// emitCompetenceEvent carries the signed delta so totals can be replayed from logs.
func (tx *txContext) emitCompetenceEvent(target, reviewer sdk.Address, delta dao.Score) {
	tx.log(fmt.Sprintf(
		"mc|to:%s|by:%s|d:%s",
		target,
		reviewer,
		delta,
	))
}

func (tx *txContext) emitFreezeEvent(frozen bool, active uint32) {
	tx.log(fmt.Sprintf("df|frozen:%t|active:%d", frozen, active))
}

func (tx *txContext) emitEventCreated(id uint64, creator sdk.Address, start int64) {
	tx.log(fmt.Sprintf(
		"ec|id:%d|by:%s|st:%d",
		id,
		creator,
		start,
	))
}

func (tx *txContext) emitRegistered(id uint64, member sdk.Address, late bool) {
	tx.log(fmt.Sprintf(
		"er|id:%d|by:%s|late:%t",
		id,
		member,
		late,
	))
}

// emitWithdrawn includes the penalty (zero outside the late window).
func (tx *txContext) emitWithdrawn(id uint64, member sdk.Address, penalty dao.Score) {
	tx.log(fmt.Sprintf(
		"ew|id:%d|by:%s|p:%s",
		id,
		member,
		penalty,
	))
}

// emitAttendance logs one presence delta applied during finalization.
func (tx *txContext) emitAttendance(id uint64, member sdk.Address, delta dao.Score) {
	tx.log(fmt.Sprintf(
		"ea|id:%d|m:%s|d:%s",
		id,
		member,
		delta,
	))
}

func (tx *txContext) emitEventFinalized(ev *dao.Event) {
	tx.log(fmt.Sprintf(
		"ef|id:%d|r:%d|a:%d",
		ev.ID,
		ev.RegisteredCount,
		ev.AttendedCount,
	))
}

// emitProposalCreatedEvent keeps observers updated with a short pc line for every new idea.
func (tx *txContext) emitProposalCreatedEvent(proposalID uint64, proposer sdk.Address) {
	tx.log(fmt.Sprintf(
		"pc|id:%d|by:%s",
		proposalID,
		proposer,
	))
}

// emitVoteCasted includes the weight so tallies can be replayed from logs only.
func (tx *txContext) emitVoteCasted(proposalID uint64, voter sdk.Address, support bool, weight dao.Score) {
	tx.log(fmt.Sprintf(
		"v|id:%d|by:%s|s:%t|w:%s",
		proposalID,
		voter,
		support,
		weight,
	))
}

// emitProposalStateChangedEvent is the swiss army knife log entry for any status flip.
func (tx *txContext) emitProposalStateChangedEvent(proposalID uint64, status dao.ProposalStatus) {
	tx.log(fmt.Sprintf(
		"ps|id:%d|s:%s",
		proposalID,
		status.String(),
	))
}

// emitProposalResultEvent leaves a short hint whether the attached action ran.
func (tx *txContext) emitProposalResultEvent(proposalID uint64, result string) {
	tx.log(fmt.Sprintf(
		"pr|id:%d|r:%s",
		proposalID,
		result,
	))
}
