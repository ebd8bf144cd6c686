package commands

import (
	"context"
	"strings"

	application "ballotbox/contexts/governance/poll-service/application"
	"ballotbox/contexts/governance/poll-service/domain/entities"
	domainerrors "ballotbox/contexts/governance/poll-service/domain/errors"
)

// StartVotingCommand opens a created poll for voting.
type StartVotingCommand struct {
	PollID  int64
	ActorID string
}

// EndVotingCommand closes a voting poll, freezing its tally.
type EndVotingCommand struct {
	PollID  int64
	ActorID string
}

type TransitionResult struct {
	Poll entities.Poll
}

// StartVoting moves a poll from created to voting. Only the creator may call
// it; any other state fails without mutation.
func (uc PollUseCase) StartVoting(ctx context.Context, cmd StartVotingCommand) (TransitionResult, error) {
	return uc.applyTransition(ctx, cmd.PollID, cmd.ActorID,
		entities.PollStatusCreated, entities.PollStatusVoting, EventTypeVotingStarted)
}

// EndVoting moves a poll from voting to ended. Ended is terminal: no
// transition leads out of it.
func (uc PollUseCase) EndVoting(ctx context.Context, cmd EndVotingCommand) (TransitionResult, error) {
	return uc.applyTransition(ctx, cmd.PollID, cmd.ActorID,
		entities.PollStatusVoting, entities.PollStatusEnded, EventTypeVotingEnded)
}

func (uc PollUseCase) applyTransition(
	ctx context.Context,
	pollID int64,
	actorID string,
	from entities.PollStatus,
	to entities.PollStatus,
	eventType string,
) (TransitionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID = strings.TrimSpace(actorID)
	logger.Info("poll transition processing started",
		"event", "poll_transition_started",
		"module", "governance/poll-service",
		"layer", "application",
		"poll_id", pollID,
		"actor_id", actorID,
		"to_status", string(to),
	)
	if actorID == "" {
		return TransitionResult{}, domainerrors.ErrInvalidPollInput
	}

	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return TransitionResult{}, err
	}
	if poll.CreatorID != actorID {
		logger.Warn("poll transition denied for non-creator",
			"event", "poll_transition_unauthorized",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", pollID,
			"actor_id", actorID,
			"creator_id", poll.CreatorID,
		)
		return TransitionResult{}, domainerrors.ErrUnauthorized
	}
	if poll.Status != from {
		logger.Warn("poll transition rejected for state",
			"event", "poll_transition_invalid_state",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", pollID,
			"from_status", string(poll.Status),
			"to_status", string(to),
		)
		return TransitionResult{}, domainerrors.ErrInvalidStateTransition
	}

	now := uc.now()
	// The repository re-checks from under its own exclusion, so a concurrent
	// transition loses with ErrInvalidStateTransition instead of applying twice.
	if err := uc.Polls.TransitionPoll(ctx, pollID, from, to, now); err != nil {
		return TransitionResult{}, err
	}

	poll.Status = to
	poll.UpdatedAt = now
	switch to {
	case entities.PollStatusVoting:
		poll.VotingStartedAt = &now
	case entities.PollStatusEnded:
		poll.VotingEndedAt = &now
	}

	if err := uc.appendEvent(ctx, eventType, pollID, now, map[string]any{
		"poll_id":    pollID,
		"creator_id": poll.CreatorID,
	}); err != nil {
		logger.Error("poll transition event append failed",
			"event", "poll_transition_event_append_failed",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", pollID,
			"to_status", string(to),
			"error", err.Error(),
		)
		return TransitionResult{}, err
	}

	logger.Info("poll state changed",
		"event", "poll_state_changed",
		"module", "governance/poll-service",
		"layer", "application",
		"poll_id", pollID,
		"from_status", string(from),
		"to_status", string(to),
	)
	return TransitionResult{Poll: poll}, nil
}
