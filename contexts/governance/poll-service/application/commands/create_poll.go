package commands

import (
	"context"
	"strings"

	application "ballotbox/contexts/governance/poll-service/application"
	"ballotbox/contexts/governance/poll-service/domain/entities"
	domainerrors "ballotbox/contexts/governance/poll-service/domain/errors"
)

// CreatePollCommand registers a new poll owned by the calling identity.
type CreatePollCommand struct {
	CreatorID string
	Question  string
	Options   []string
}

type CreatePollResult struct {
	Poll entities.Poll
}

// CreatePoll validates the option list, appends the poll to the registry in
// state created with a zeroed escrow, and emits poll.created. Poll ids are
// assigned by the repository and never reused.
func (uc PollUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (CreatePollResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	creatorID := strings.TrimSpace(cmd.CreatorID)
	question := strings.TrimSpace(cmd.Question)
	logger.Info("poll create processing started",
		"event", "poll_create_started",
		"module", "governance/poll-service",
		"layer", "application",
		"creator_id", creatorID,
		"option_count", len(cmd.Options),
	)

	if creatorID == "" || question == "" {
		logger.Warn("poll create validation failed",
			"event", "poll_create_validation_failed",
			"module", "governance/poll-service",
			"layer", "application",
			"creator_id", creatorID,
		)
		return CreatePollResult{}, domainerrors.ErrInvalidPollInput
	}
	if len(cmd.Options) < 2 {
		logger.Warn("poll create rejected for option count",
			"event", "poll_create_option_count_rejected",
			"module", "governance/poll-service",
			"layer", "application",
			"creator_id", creatorID,
			"option_count", len(cmd.Options),
		)
		return CreatePollResult{}, domainerrors.ErrInvalidOptionCount
	}
	options := make([]string, 0, len(cmd.Options))
	for _, option := range cmd.Options {
		option = strings.TrimSpace(option)
		if option == "" {
			return CreatePollResult{}, domainerrors.ErrInvalidPollInput
		}
		options = append(options, option)
	}

	now := uc.now()
	poll := entities.Poll{
		Question:   question,
		Options:    options,
		Status:     entities.PollStatusCreated,
		CreatorID:  creatorID,
		TotalFunds: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	pollID, err := uc.Polls.CreatePoll(ctx, poll)
	if err != nil {
		logger.Error("poll create persistence failed",
			"event", "poll_create_persist_failed",
			"module", "governance/poll-service",
			"layer", "application",
			"creator_id", creatorID,
			"error", err.Error(),
		)
		return CreatePollResult{}, err
	}
	poll.PollID = pollID

	if err := uc.appendEvent(ctx, EventTypePollCreated, pollID, now, map[string]any{
		"poll_id":      pollID,
		"creator_id":   creatorID,
		"question":     question,
		"option_count": len(options),
	}); err != nil {
		logger.Error("poll create event append failed",
			"event", "poll_create_event_append_failed",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return CreatePollResult{}, err
	}

	logger.Info("poll created",
		"event", "poll_created",
		"module", "governance/poll-service",
		"layer", "application",
		"poll_id", pollID,
		"creator_id", creatorID,
		"option_count", len(options),
	)
	return CreatePollResult{Poll: poll}, nil
}
