package contract

import (
	"fmt"

	"presence_dao/contract/dao"
)

// -----------------------------------------------------------------------------
// Voting
// -----------------------------------------------------------------------------

// castVote records the sender's vote with the power they hold right now.
func (tx *txContext) castVote(args *VoteArgs) (dao.Score, error) {
	st, err := tx.loadState()
	if err != nil {
		return 0, err
	}
	if err := requireNotFrozen(st); err != nil {
		return 0, err
	}
	voter, err := tx.requireActiveMember(tx.sender())
	if err != nil {
		return 0, err
	}
	prpsl, err := tx.loadProposal(args.ProposalID)
	if err != nil {
		return 0, err
	}
	if prpsl.Status != dao.ProposalActive || tx.now() >= prpsl.VotingEndsAt {
		return 0, fmt.Errorf("%w: proposal %d", ErrVotingClosed, prpsl.ID)
	}
	existing, err := tx.loadVote(prpsl.ID, voter.Authority)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, fmt.Errorf("%w: already voted on proposal %d", ErrDuplicateKey, prpsl.ID)
	}
	weight := VotingPower(voter.PresenceScore, voter.CompetenceScore, st.TotalPresence, st.TotalCompetence)
	if weight == 0 {
		return 0, fmt.Errorf("%w: %s has no voting power", ErrInsufficientReputation, voter.Authority.Short())
	}

	if args.Support {
		prpsl.VotesFor, err = addScore(prpsl.VotesFor, weight)
	} else {
		prpsl.VotesAgainst, err = addScore(prpsl.VotesAgainst, weight)
	}
	if err != nil {
		return 0, err
	}
	tx.saveVote(&dao.VoteRecord{
		ProposalID: prpsl.ID,
		Voter:      voter.Authority,
		Support:    args.Support,
		Weight:     weight,
		HasVoted:   true,
		VotedAt:    tx.now(),
	})
	tx.saveProposal(prpsl)
	tx.emitVoteCasted(prpsl.ID, voter.Authority, args.Support, weight)
	return weight, nil
}
