package contract

import "presence_dao/contract/dao"

// -----------------------------------------------------------------------------
// Membership
// -----------------------------------------------------------------------------

const (
	// MinActiveMembers is the freeze threshold: below it privileged actions fail.
	MinActiveMembers = 3
	// MaxGenesisMembers caps the founding set added without a vote.
	MaxGenesisMembers = 3
	// MaxSeedUnits bounds seed and competence deltas given in whole units.
	MaxSeedUnits = 1_000_000
)

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

const (
	// LateWindowSeconds marks registrations and withdrawals close to the start.
	LateWindowSeconds = 86_400
	// MaxEventDescriptionLength limits event descriptions in bytes.
	MaxEventDescriptionLength = 256
	// MaxAttendanceListLength limits a single finalize_event call.
	MaxAttendanceListLength = 512
)

// Presence deltas, all in scaled units.
const (
	AttendanceReward dao.Score = 1 * dao.Scale
	LatePenalty      dao.Score = 1 * dao.Scale
	GhostingPenalty  dao.Score = 2 * dao.Scale
	OubliPenalty     dao.Score = 2 * dao.Scale
)

// -----------------------------------------------------------------------------
// Proposals
// -----------------------------------------------------------------------------

const (
	MaxTitleLength               = 128
	MaxProposalDescriptionLength = 512
	MinVotingPeriodSeconds       = 86_400
	MaxVotingPeriodSeconds       = 30 * 86_400
)

// -----------------------------------------------------------------------------
// Storage Key Prefixes
// -----------------------------------------------------------------------------

const (
	// kState holds the singleton governance record.
	kState byte = 0x01
	// kMember stores encoded Member structs keyed by address.
	kMember byte = 0x02
	// kEvent stores Event records by id.
	kEvent byte = 0x10
	// kRegistration stores one record per (event, member) pair.
	kRegistration byte = 0x11
	// kProposal contains encoded Proposal records.
	kProposal byte = 0x20
	// kVoteReceipt stores one VoteRecord per (proposal, voter).
	kVoteReceipt byte = 0x21
)

// DefaultProgramID seeds the account address salt when the host does not set one.
const DefaultProgramID = "presence-dao"
