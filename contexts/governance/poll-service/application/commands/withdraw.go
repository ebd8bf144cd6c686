package commands

import (
	"context"
	"strings"

	application "ballotbox/contexts/governance/poll-service/application"
	"ballotbox/contexts/governance/poll-service/domain/entities"
	domainerrors "ballotbox/contexts/governance/poll-service/domain/errors"
)

// WithdrawFundsCommand releases a poll's escrowed contributions to its
// creator once voting has ended.
type WithdrawFundsCommand struct {
	PollID  int64
	ActorID string
}

type WithdrawFundsResult struct {
	PollID    int64
	CreatorID string
	Amount    int64
}

// WithdrawFunds runs the two-phase release: drain the balance to zero first,
// then transfer the drained amount to the creator. The drain makes the funds
// unobservable to any concurrent withdrawal before the external transfer
// runs; if the transfer fails the drained amount is restored and the command
// fails with ErrTransferFailed. A repeat call after a successful withdrawal
// drains zero, transfers nothing, and succeeds.
func (uc PollUseCase) WithdrawFunds(ctx context.Context, cmd WithdrawFundsCommand) (WithdrawFundsResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	logger.Info("withdrawal processing started",
		"event", "poll_withdraw_started",
		"module", "governance/poll-service",
		"layer", "application",
		"poll_id", cmd.PollID,
		"actor_id", actorID,
	)
	if actorID == "" {
		return WithdrawFundsResult{}, domainerrors.ErrInvalidPollInput
	}

	poll, err := uc.Polls.GetPoll(ctx, cmd.PollID)
	if err != nil {
		return WithdrawFundsResult{}, err
	}
	if poll.CreatorID != actorID {
		logger.Warn("withdrawal denied for non-creator",
			"event", "poll_withdraw_unauthorized",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", cmd.PollID,
			"actor_id", actorID,
			"creator_id", poll.CreatorID,
		)
		return WithdrawFundsResult{}, domainerrors.ErrUnauthorized
	}
	if poll.Status != entities.PollStatusEnded {
		logger.Warn("withdrawal rejected for poll state",
			"event", "poll_withdraw_invalid_state",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", cmd.PollID,
			"status", string(poll.Status),
		)
		return WithdrawFundsResult{}, domainerrors.ErrInvalidStateTransition
	}

	now := uc.now()
	amount, err := uc.Polls.DrainFunds(ctx, cmd.PollID, now)
	if err != nil {
		return WithdrawFundsResult{}, err
	}

	if amount > 0 {
		if err := uc.Funds.Transfer(ctx, poll.CreatorID, amount); err != nil {
			logger.Error("withdrawal transfer failed",
				"event", "poll_withdraw_transfer_failed",
				"module", "governance/poll-service",
				"layer", "application",
				"poll_id", cmd.PollID,
				"creator_id", poll.CreatorID,
				"amount", amount,
				"error", err.Error(),
			)
			if restoreErr := uc.Polls.RestoreFunds(ctx, cmd.PollID, amount, now); restoreErr != nil {
				logger.Error("withdrawal restore failed after transfer failure",
					"event", "poll_withdraw_restore_failed",
					"module", "governance/poll-service",
					"layer", "application",
					"poll_id", cmd.PollID,
					"amount", amount,
					"error", restoreErr.Error(),
				)
				return WithdrawFundsResult{}, restoreErr
			}
			return WithdrawFundsResult{}, domainerrors.ErrTransferFailed
		}
	}

	if err := uc.appendEvent(ctx, EventTypeFundsWithdrawn, cmd.PollID, now, map[string]any{
		"poll_id":    cmd.PollID,
		"creator_id": poll.CreatorID,
		"amount":     amount,
	}); err != nil {
		logger.Error("withdrawal event append failed",
			"event", "poll_withdraw_event_append_failed",
			"module", "governance/poll-service",
			"layer", "application",
			"poll_id", cmd.PollID,
			"error", err.Error(),
		)
		return WithdrawFundsResult{}, err
	}

	logger.Info("withdrawal completed",
		"event", "poll_withdraw_completed",
		"module", "governance/poll-service",
		"layer", "application",
		"poll_id", cmd.PollID,
		"creator_id", poll.CreatorID,
		"amount", amount,
	)
	return WithdrawFundsResult{
		PollID:    cmd.PollID,
		CreatorID: poll.CreatorID,
		Amount:    amount,
	}, nil
}
