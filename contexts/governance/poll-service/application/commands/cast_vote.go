package commands

import (
	"context"
	"strings"

	application "ballotbox/contexts/governance/poll-service/application"
	"ballotbox/contexts/governance/poll-service/domain/entities"
	domainerrors "ballotbox/contexts/governance/poll-service/domain/errors"
)

// CastVoteCommand records one vote and escrows its contribution. The
// contribution gates eligibility only; every accepted vote counts exactly
// once regardless of how much was attached.
type CastVoteCommand struct {
	PollID       int64
	VoterID      string
	OptionIndex  int
	Contribution int64
}

type CastVoteResult struct {
	Record entities.VoterRecord
}

// CastVote validates poll state, option bounds, the contribution threshold,
// and the one-vote-per-voter rule, then atomically records the vote, bumps
// the option tally, and adds the contribution to the poll's escrow.
func (uc PollUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voterID := strings.TrimSpace(cmd.VoterID)
	logger.Info("vote cast processing started",
		"event", "poll_vote_cast_started",
		"module", "governance/poll-service",
		"layer", "application",
		"poll_id", cmd.PollID,
		"voter_id", voterID,
		"option_index", cmd.OptionIndex,
	)
	if voterID == "" {
		return CastVoteResult{}, domainerrors.ErrInvalidPollInput
	}

	poll, err := uc.Polls.GetPoll(ctx, cmd.PollID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if poll.Status != entities.PollStatusVoting {
		logger.Warn("vote cast rejected for poll state",
			"event", "poll_vote_cast_invalid_state",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", cmd.PollID,
			"voter_id", voterID,
			"status", string(poll.Status),
		)
		return CastVoteResult{}, domainerrors.ErrInvalidStateTransition
	}
	if !poll.HasOption(cmd.OptionIndex) {
		logger.Warn("vote cast rejected for option index",
			"event", "poll_vote_cast_invalid_option",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", cmd.PollID,
			"voter_id", voterID,
			"option_index", cmd.OptionIndex,
			"option_count", poll.OptionCount(),
		)
		return CastVoteResult{}, domainerrors.ErrInvalidOption
	}
	if cmd.Contribution < uc.minContribution() {
		logger.Warn("vote cast rejected for contribution",
			"event", "poll_vote_cast_insufficient_contribution",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", cmd.PollID,
			"voter_id", voterID,
			"contribution", cmd.Contribution,
			"minimum", uc.minContribution(),
		)
		return CastVoteResult{}, domainerrors.ErrInsufficientContribution
	}
	if _, voted, err := uc.Polls.GetVoterRecord(ctx, cmd.PollID, voterID); err != nil {
		return CastVoteResult{}, err
	} else if voted {
		logger.Warn("vote cast rejected for repeat voter",
			"event", "poll_vote_cast_already_voted",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", cmd.PollID,
			"voter_id", voterID,
		)
		return CastVoteResult{}, domainerrors.ErrAlreadyVoted
	}

	now := uc.now()
	record := entities.VoterRecord{
		PollID:       cmd.PollID,
		VoterID:      voterID,
		OptionIndex:  cmd.OptionIndex,
		Contribution: cmd.Contribution,
		CastAt:       now,
	}
	// RecordVote enforces write-once at the storage boundary, so a duplicate
	// racing past the read above still collapses to ErrAlreadyVoted.
	if err := uc.Polls.RecordVote(ctx, record); err != nil {
		return CastVoteResult{}, err
	}

	if err := uc.appendEvent(ctx, EventTypeVoteCast, cmd.PollID, now, map[string]any{
		"poll_id":      cmd.PollID,
		"voter_id":     voterID,
		"option_index": cmd.OptionIndex,
		"contribution": cmd.Contribution,
	}); err != nil {
		logger.Error("vote cast event append failed",
			"event", "poll_vote_cast_event_append_failed",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", cmd.PollID,
			"voter_id", voterID,
			"error", err.Error(),
		)
		return CastVoteResult{}, err
	}

	logger.Info("vote cast recorded",
		"event", "poll_vote_cast_recorded",
		"module", "governance/poll-service",
		"layer", "application",
		"poll_id", cmd.PollID,
		"voter_id", voterID,
		"option_index", cmd.OptionIndex,
		"contribution", cmd.Contribution,
	)
	return CastVoteResult{Record: record}, nil
}
