package dao

import (
	"fmt"
	"strings"

	"presence_dao/sdk"
)

// Scale is the fixed-point multiplier for every reputation quantity.
const Scale = 1_000_000_000

// Score is a signed reputation value scaled by Scale.
type Score int64

// Units scales whole units. Callers bound n so the product cannot overflow.
// Example payload: dao.Units(3)
func Units(n int64) Score {
	return Score(n * Scale)
}

// Float converts back for reporting only.
func (s Score) Float() float64 {
	return float64(s) / Scale
}

// String renders the score with all nine decimals, e.g. -2.000000000.
func (s Score) String() string {
	v := int64(s)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	u := uint64(v)
	if v < 0 {
		u = uint64(-(v + 1)) + 1
	}
	return fmt.Sprintf("%s%d.%09d", sign, u/Scale, u%Scale)
}

// ProposalType selects the pass threshold.
type ProposalType uint8

const (
	ProposalTypeUnspecified ProposalType = 0
	ProposalCritical        ProposalType = 1
	ProposalOperational     ProposalType = 2
)

// String prints the type as lower-case text for events and logs.
func (pt ProposalType) String() string {
	switch pt {
	case ProposalCritical:
		return "critical"
	case ProposalOperational:
		return "operational"
	default:
		return "unspecified"
	}
}

// ParseProposalType accepts the names above or their numeric codes.
func ParseProposalType(s string) (ProposalType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "1":
		return ProposalCritical, true
	case "operational", "2":
		return ProposalOperational, true
	default:
		return ProposalTypeUnspecified, false
	}
}

// ProposalStatus captures a proposal's lifecycle. Everything but Active is terminal.
type ProposalStatus uint8

const (
	ProposalStatusUnspecified ProposalStatus = 0
	ProposalActive            ProposalStatus = 1
	ProposalPassed            ProposalStatus = 2
	ProposalRejected          ProposalStatus = 3
	ProposalCancelled         ProposalStatus = 4
)

// String prints the status as lower-case text for events and logs.
func (ps ProposalStatus) String() string {
	switch ps {
	case ProposalActive:
		return "active"
	case ProposalPassed:
		return "passed"
	case ProposalRejected:
		return "rejected"
	case ProposalCancelled:
		return "cancelled"
	default:
		return "unspecified"
	}
}

// ProposalAction is the membership change a Critical proposal carries out once passed.
type ProposalAction uint8

const (
	ActionNone       ProposalAction = 0
	ActionCoopt      ProposalAction = 1
	ActionDeactivate ProposalAction = 2
	ActionReactivate ProposalAction = 3
)

func (pa ProposalAction) String() string {
	switch pa {
	case ActionCoopt:
		return "coopt"
	case ActionDeactivate:
		return "deactivate"
	case ActionReactivate:
		return "reactivate"
	default:
		return "none"
	}
}

// ParseProposalAction maps payload text to an action; empty means none.
func ParseProposalAction(s string) (ProposalAction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ActionNone, true
	case "coopt":
		return ActionCoopt, true
	case "deactivate":
		return ActionDeactivate, true
	case "reactivate":
		return ActionReactivate, true
	default:
		return ActionNone, false
	}
}

// EventPhase is derived from the clock and the finalized flag, never stored.
type EventPhase uint8

const (
	EventOpen      EventPhase = 0
	EventClosed    EventPhase = 1
	EventFinalized EventPhase = 2
)

func (ep EventPhase) String() string {
	switch ep {
	case EventOpen:
		return "open"
	case EventClosed:
		return "closed"
	default:
		return "finalized"
	}
}

// State is the singleton governance record.
type State struct {
	Authority         sdk.Address
	TotalPresence     Score
	TotalCompetence   Score
	ActiveMembers     uint32
	MemberCount       uint32
	GenesisCount      uint8
	EventCounter      uint64
	ProposalCounter   uint64
	Salt              [32]byte
	GenesisPresence   Score
	GenesisCompetence Score
	CooptPresence     Score
	CooptCompetence   Score
	InitializedAt     int64
}

type Member struct {
	Authority       sdk.Address
	PresenceScore   Score
	CompetenceScore Score
	IsActive        bool
	IsGenesis       bool
	JoinedAt        int64
}

// Event is a track session members register for and attend.
type Event struct {
	ID              uint64
	Creator         sdk.Address
	StartTime       int64
	Description     string
	IsFinalized     bool
	RegisteredCount uint32
	AttendedCount   uint32
	CreatedAt       int64
}

// Phase reports where the event sits relative to now.
func (e *Event) Phase(now int64) EventPhase {
	switch {
	case e.IsFinalized:
		return EventFinalized
	case now < e.StartTime:
		return EventOpen
	default:
		return EventClosed
	}
}

type Registration struct {
	EventID      uint64
	Member       sdk.Address
	IsRegistered bool
	HasAttended  bool
	IsLate       bool
	RegisteredAt int64
}

type Proposal struct {
	ID                 uint64
	Proposer           sdk.Address
	Title              string
	Description        string
	Type               ProposalType
	VotesFor           Score
	VotesAgainst       Score
	TotalPowerSnapshot Score
	CreatedAt          int64
	VotingEndsAt       int64
	Status             ProposalStatus
	Action             ProposalAction
	Target             sdk.Address
	ActionApplied      bool
	FinalizedAt        int64
}

type VoteRecord struct {
	ProposalID uint64
	Voter      sdk.Address
	Support    bool
	Weight     Score
	HasVoted   bool
	VotedAt    int64
}
