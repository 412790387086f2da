package contract

import "errors"

// Sentinel errors. Handlers wrap them with context; callers match with errors.Is.
var (
	ErrAlreadyInitialized     = errors.New("already initialized")
	ErrNotInitialized         = errors.New("not initialized")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrUnauthorizedMembership = errors.New("unauthorized membership")
	ErrGenesisFull            = errors.New("genesis full")
	ErrDaoFrozen              = errors.New("dao frozen")
	ErrMemberNotActive        = errors.New("member not active")
	ErrDuplicateKey           = errors.New("duplicate key")
	ErrNotFound               = errors.New("not found")
	ErrEventNotOpen           = errors.New("event not open")
	ErrEventNotStarted        = errors.New("event not started")
	ErrEventAlreadyFinalized  = errors.New("event already finalized")
	ErrVotingClosed           = errors.New("voting closed")
	ErrVotingNotEnded         = errors.New("voting not ended")
	ErrProposalNotActive      = errors.New("proposal not active")
	ErrInsufficientReputation = errors.New("insufficient reputation")
	ErrArithmeticOverflow     = errors.New("arithmetic overflow")
	ErrInvalidInput           = errors.New("invalid input")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrNotInitialized, "NotInitialized"},
	{ErrUnauthorizedMembership, "UnauthorizedMembership"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrGenesisFull, "GenesisFull"},
	{ErrDaoFrozen, "DaoFrozen"},
	{ErrMemberNotActive, "MemberNotActive"},
	{ErrDuplicateKey, "DuplicateKey"},
	{ErrNotFound, "NotFound"},
	{ErrEventNotOpen, "EventNotOpen"},
	{ErrEventNotStarted, "EventNotStarted"},
	{ErrEventAlreadyFinalized, "EventAlreadyFinalized"},
	{ErrVotingClosed, "VotingClosed"},
	{ErrVotingNotEnded, "VotingNotEnded"},
	{ErrProposalNotActive, "ProposalNotActive"},
	{ErrInsufficientReputation, "InsufficientReputation"},
	{ErrArithmeticOverflow, "ArithmeticOverflow"},
	{ErrInvalidInput, "InvalidInput"},
}

// Code maps an error to its taxonomy name. Unknown errors report "Internal".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "Internal"
}
