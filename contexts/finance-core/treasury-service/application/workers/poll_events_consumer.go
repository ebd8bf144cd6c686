package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	application "ballotbox/contexts/finance-core/treasury-service/application"
	"ballotbox/contexts/finance-core/treasury-service/ports"
)

const (
	voteCastTopic       = "poll.vote_cast"
	fundsWithdrawnTopic = "poll.funds_withdrawn"
	defaultTreasuryCG   = "treasury-service-poll-cg"
)

// PollEventsConsumer journals poll escrow movement: vote_cast events become
// contribution entries, funds_withdrawn events become payout entries.
type PollEventsConsumer struct {
	Subscriber    ports.EventSubscriber
	Service       application.Service
	ConsumerGroup string
	Disabled      bool
	Logger        *slog.Logger
}

func (c PollEventsConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("poll events consumer disabled by feature flag",
			"event", "treasury_poll_consumer_disabled",
			"module", "finance-core/treasury-service",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultTreasuryCG
	}
	logger.Info("poll events consumer starting subscriptions",
		"event", "treasury_poll_consumer_starting",
		"module", "finance-core/treasury-service",
		"layer", "worker",
		"consumer_group", group,
	)
	if err := c.Subscriber.Subscribe(ctx, voteCastTopic, group, c.handleVoteCast); err != nil {
		logger.Error("poll events consumer subscribe failed",
			"event", "treasury_poll_consumer_subscribe_failed",
			"module", "finance-core/treasury-service",
			"layer", "worker",
			"topic", voteCastTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	if err := c.Subscriber.Subscribe(ctx, fundsWithdrawnTopic, group, c.handleFundsWithdrawn); err != nil {
		logger.Error("poll events consumer subscribe failed",
			"event", "treasury_poll_consumer_subscribe_failed",
			"module", "finance-core/treasury-service",
			"layer", "worker",
			"topic", fundsWithdrawnTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("poll events consumer subscriptions active",
		"event", "treasury_poll_consumer_started",
		"module", "finance-core/treasury-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c PollEventsConsumer) handleVoteCast(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	var payload struct {
		PollID       int64  `json:"poll_id"`
		VoterID      string `json:"voter_id"`
		OptionIndex  int    `json:"option_index"`
		Contribution int64  `json:"contribution"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("poll.vote_cast payload decode failed",
			"event", "treasury_vote_cast_decode_failed",
			"module", "finance-core/treasury-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	entry, replayed, err := c.Service.ConsumeVoteCastEvent(ctx, event.EventID, ports.VoteCastEvent{
		PollID:       payload.PollID,
		VoterID:      payload.VoterID,
		OptionIndex:  payload.OptionIndex,
		Contribution: payload.Contribution,
		OccurredAt:   event.OccurredAt,
	})
	if err != nil {
		logger.Error("poll.vote_cast journaling failed",
			"event", "treasury_vote_cast_failed",
			"module", "finance-core/treasury-service",
			"layer", "worker",
			"event_id", event.EventID,
			"poll_id", payload.PollID,
			"error", err.Error(),
		)
		return err
	}
	if replayed {
		logger.Debug("poll.vote_cast replay skipped",
			"event", "treasury_vote_cast_replayed",
			"module", "finance-core/treasury-service",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}
	logger.Info("poll.vote_cast consumed",
		"event", "treasury_vote_cast_consumed",
		"module", "finance-core/treasury-service",
		"layer", "worker",
		"event_id", event.EventID,
		"poll_id", payload.PollID,
		"entry_id", entry.EntryID,
	)
	return nil
}

func (c PollEventsConsumer) handleFundsWithdrawn(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	var payload struct {
		PollID    int64  `json:"poll_id"`
		CreatorID string `json:"creator_id"`
		Amount    int64  `json:"amount"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("poll.funds_withdrawn payload decode failed",
			"event", "treasury_funds_withdrawn_decode_failed",
			"module", "finance-core/treasury-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	entry, replayed, err := c.Service.ConsumeFundsWithdrawnEvent(ctx, event.EventID, ports.FundsWithdrawnEvent{
		PollID:     payload.PollID,
		CreatorID:  payload.CreatorID,
		Amount:     payload.Amount,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		logger.Error("poll.funds_withdrawn journaling failed",
			"event", "treasury_funds_withdrawn_failed",
			"module", "finance-core/treasury-service",
			"layer", "worker",
			"event_id", event.EventID,
			"poll_id", payload.PollID,
			"error", err.Error(),
		)
		return err
	}
	if replayed {
		logger.Debug("poll.funds_withdrawn replay skipped",
			"event", "treasury_funds_withdrawn_replayed",
			"module", "finance-core/treasury-service",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}
	logger.Info("poll.funds_withdrawn consumed",
		"event", "treasury_funds_withdrawn_consumed",
		"module", "finance-core/treasury-service",
		"layer", "worker",
		"event_id", event.EventID,
		"poll_id", payload.PollID,
		"entry_id", entry.EntryID,
	)
	return nil
}
