package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	treasuryservice "ballotbox/contexts/finance-core/treasury-service"
	treasuryerrors "ballotbox/contexts/finance-core/treasury-service/domain/errors"
	treasuryports "ballotbox/contexts/finance-core/treasury-service/ports"
)

func TestTreasuryJournalsContributionsAndPayouts(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	contributions := []struct {
		eventID string
		voter   string
		amount  int64
	}{
		{"evt-vote-1", "voter-1", 10000},
		{"evt-vote-2", "voter-2", 20000},
	}
	for _, c := range contributions {
		entry, replayed, err := module.Service.ConsumeVoteCastEvent(ctx, c.eventID, treasuryports.VoteCastEvent{
			PollID:       1,
			VoterID:      c.voter,
			OptionIndex:  0,
			Contribution: c.amount,
			OccurredAt:   now,
		})
		if err != nil {
			t.Fatalf("consume %s failed: %v", c.eventID, err)
		}
		if replayed {
			t.Fatalf("fresh event %s reported as replay", c.eventID)
		}
		if entry.EntryType != treasuryports.EntryTypeContribution || entry.Amount != c.amount {
			t.Fatalf("unexpected journal entry for %s: %+v", c.eventID, entry)
		}
	}

	payout, replayed, err := module.Service.ConsumeFundsWithdrawnEvent(ctx, "evt-withdraw-1", treasuryports.FundsWithdrawnEvent{
		PollID:     1,
		CreatorID:  "creator-1",
		Amount:     30000,
		OccurredAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("consume withdrawal failed: %v", err)
	}
	if replayed {
		t.Fatalf("fresh withdrawal reported as replay")
	}
	if payout.EntryType != treasuryports.EntryTypePayout {
		t.Fatalf("expected payout entry, got %s", payout.EntryType)
	}

	ledger, err := module.Service.PollLedger(ctx, 1)
	if err != nil {
		t.Fatalf("poll ledger failed: %v", err)
	}
	if ledger.ContributionTotal != 30000 || ledger.PayoutTotal != 30000 {
		t.Fatalf("unexpected ledger totals: %+v", ledger)
	}
	if ledger.Outstanding != 0 {
		t.Fatalf("expected settled ledger, outstanding=%d", ledger.Outstanding)
	}
	if len(ledger.Entries) != 3 {
		t.Fatalf("expected 3 journal entries, got %d", len(ledger.Entries))
	}

	report, err := module.Handler.ReportHandler(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.Polls != 1 || report.ContributionTotal != 30000 || report.PayoutTotal != 30000 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestTreasuryReplaySkipsSecondJournalEntry(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	event := treasuryports.VoteCastEvent{
		PollID:       2,
		VoterID:      "voter-1",
		OptionIndex:  1,
		Contribution: 12000,
		OccurredAt:   now,
	}
	if _, _, err := module.Service.ConsumeVoteCastEvent(ctx, "evt-replay-1", event); err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	_, replayed, err := module.Service.ConsumeVoteCastEvent(ctx, "evt-replay-1", event)
	if err != nil {
		t.Fatalf("replay consume failed: %v", err)
	}
	if !replayed {
		t.Fatalf("expected replay to be reported")
	}

	ledger, err := module.Service.PollLedger(ctx, 2)
	if err != nil {
		t.Fatalf("poll ledger failed: %v", err)
	}
	if len(ledger.Entries) != 1 {
		t.Fatalf("expected one journal entry after replay, got %d", len(ledger.Entries))
	}

	divergent := event
	divergent.Contribution = 99000
	_, _, err = module.Service.ConsumeVoteCastEvent(ctx, "evt-replay-1", divergent)
	if !errors.Is(err, treasuryerrors.ErrConflict) {
		t.Fatalf("expected divergent replay to conflict, got %v", err)
	}
}

func TestTreasuryInputValidation(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC)

	_, _, err := module.Service.ConsumeVoteCastEvent(ctx, "  ", treasuryports.VoteCastEvent{
		PollID: 1, VoterID: "voter-1", Contribution: 10000, OccurredAt: now,
	})
	if !errors.Is(err, treasuryerrors.ErrInvalidInput) {
		t.Fatalf("expected blank event id to fail, got %v", err)
	}
	_, _, err = module.Service.ConsumeVoteCastEvent(ctx, "evt-bad-poll", treasuryports.VoteCastEvent{
		VoterID: "voter-1", Contribution: 10000, OccurredAt: now,
	})
	if !errors.Is(err, treasuryerrors.ErrInvalidInput) {
		t.Fatalf("expected missing poll id to fail, got %v", err)
	}
	_, _, err = module.Service.ConsumeVoteCastEvent(ctx, "evt-zero-amount", treasuryports.VoteCastEvent{
		PollID: 1, VoterID: "voter-1", Contribution: 0, OccurredAt: now,
	})
	if !errors.Is(err, treasuryerrors.ErrInvalidInput) {
		t.Fatalf("expected zero contribution to fail, got %v", err)
	}
	_, _, err = module.Service.ConsumeFundsWithdrawnEvent(ctx, "evt-negative", treasuryports.FundsWithdrawnEvent{
		PollID: 1, CreatorID: "creator-1", Amount: -1, OccurredAt: now,
	})
	if !errors.Is(err, treasuryerrors.ErrInvalidInput) {
		t.Fatalf("expected negative payout to fail, got %v", err)
	}

	entry, _, err := module.Service.ConsumeFundsWithdrawnEvent(ctx, "evt-zero-payout", treasuryports.FundsWithdrawnEvent{
		PollID: 1, CreatorID: "creator-1", Amount: 0, OccurredAt: now,
	})
	if err != nil {
		t.Fatalf("zero-amount payout should journal, got %v", err)
	}
	if entry.Amount != 0 || entry.EntryType != treasuryports.EntryTypePayout {
		t.Fatalf("unexpected zero payout entry: %+v", entry)
	}
}

func TestTreasuryLedgerHandlerFormatsEntries(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	if _, _, err := module.Service.ConsumeVoteCastEvent(ctx, "evt-dto-1", treasuryports.VoteCastEvent{
		PollID:       5,
		VoterID:      "voter-9",
		OptionIndex:  2,
		Contribution: 18000,
		OccurredAt:   now,
	}); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	resp, err := module.Handler.PollLedgerHandler(ctx, 5)
	if err != nil {
		t.Fatalf("ledger handler failed: %v", err)
	}
	if resp.PollID != 5 || len(resp.Entries) != 1 {
		t.Fatalf("unexpected ledger response: %+v", resp)
	}
	entry := resp.Entries[0]
	if entry.EntryType != "contribution" || entry.Amount != 18000 || entry.ActorID != "voter-9" {
		t.Fatalf("unexpected entry dto: %+v", entry)
	}
	if entry.OccurredAt == "" || entry.SourceEventID != "evt-dto-1" {
		t.Fatalf("expected formatted timestamps and source event id, got %+v", entry)
	}
	if resp.Outstanding != 18000 {
		t.Fatalf("expected outstanding 18000, got %d", resp.Outstanding)
	}
}
