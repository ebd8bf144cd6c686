package unit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	treasuryservice "ballotbox/contexts/finance-core/treasury-service"
	treasuryworkers "ballotbox/contexts/finance-core/treasury-service/application/workers"
	treasuryports "ballotbox/contexts/finance-core/treasury-service/ports"
)

type treasuryStubSubscriber struct {
	handlers map[string]func(context.Context, treasuryports.EventEnvelope) error
}

func (s *treasuryStubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, treasuryports.EventEnvelope) error,
) error {
	if s.handlers == nil {
		s.handlers = map[string]func(context.Context, treasuryports.EventEnvelope) error{}
	}
	s.handlers[topic] = handler
	return nil
}

func TestTreasuryConsumerJournalsPollEvents(t *testing.T) {
	now := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	module := treasuryservice.NewInMemoryModule(nil)
	sub := &treasuryStubSubscriber{}
	consumer := treasuryworkers.PollEventsConsumer{
		Subscriber: sub,
		Service:    module.Service,
	}

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start consumer failed: %v", err)
	}
	voteHandler := sub.handlers["poll.vote_cast"]
	withdrawHandler := sub.handlers["poll.funds_withdrawn"]
	if voteHandler == nil || withdrawHandler == nil {
		t.Fatalf("expected handlers for both poll topics, got %v", sub.handlers)
	}

	votePayload, _ := json.Marshal(map[string]any{
		"poll_id":      int64(3),
		"voter_id":     "voter-1",
		"option_index": 1,
		"contribution": int64(22000),
	})
	if err := voteHandler(context.Background(), treasuryports.EventEnvelope{
		EventID:    "evt-consumer-vote-1",
		EventType:  "poll.vote_cast",
		OccurredAt: now,
		Data:       votePayload,
	}); err != nil {
		t.Fatalf("vote_cast handler failed: %v", err)
	}

	withdrawPayload, _ := json.Marshal(map[string]any{
		"poll_id":    int64(3),
		"creator_id": "creator-1",
		"amount":     int64(22000),
	})
	if err := withdrawHandler(context.Background(), treasuryports.EventEnvelope{
		EventID:    "evt-consumer-withdraw-1",
		EventType:  "poll.funds_withdrawn",
		OccurredAt: now.Add(time.Hour),
		Data:       withdrawPayload,
	}); err != nil {
		t.Fatalf("funds_withdrawn handler failed: %v", err)
	}

	ledger, err := module.Service.PollLedger(context.Background(), 3)
	if err != nil {
		t.Fatalf("poll ledger failed: %v", err)
	}
	if len(ledger.Entries) != 2 {
		t.Fatalf("expected contribution and payout entries, got %d", len(ledger.Entries))
	}
	if ledger.Outstanding != 0 {
		t.Fatalf("expected settled ledger, outstanding=%d", ledger.Outstanding)
	}

	if err := voteHandler(context.Background(), treasuryports.EventEnvelope{
		EventID:    "evt-consumer-vote-1",
		EventType:  "poll.vote_cast",
		OccurredAt: now,
		Data:       votePayload,
	}); err != nil {
		t.Fatalf("replayed vote_cast handler failed: %v", err)
	}
	ledger, err = module.Service.PollLedger(context.Background(), 3)
	if err != nil {
		t.Fatalf("poll ledger failed: %v", err)
	}
	if len(ledger.Entries) != 2 {
		t.Fatalf("expected replay to journal nothing, got %d entries", len(ledger.Entries))
	}
}

func TestTreasuryConsumerDisabledRegistersNothing(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	sub := &treasuryStubSubscriber{}
	consumer := treasuryworkers.PollEventsConsumer{
		Subscriber: sub,
		Service:    module.Service,
		Disabled:   true,
	}

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start disabled consumer failed: %v", err)
	}
	if len(sub.handlers) != 0 {
		t.Fatalf("expected no subscriptions when disabled, got %v", sub.handlers)
	}
}
