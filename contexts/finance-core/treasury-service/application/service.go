package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	domainerrors "ballotbox/contexts/finance-core/treasury-service/domain/errors"
	"ballotbox/contexts/finance-core/treasury-service/ports"
)

// Service journals escrow movement observed on the poll event stream. Every
// consumed event becomes at most one ledger entry; the dedup store absorbs
// at-least-once redelivery.
type Service struct {
	Ledger   ports.LedgerRepository
	Dedup    ports.EventDedupStore
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	DedupTTL time.Duration
	Logger   *slog.Logger
}

func (s Service) ConsumeVoteCastEvent(
	ctx context.Context,
	eventID string,
	event ports.VoteCastEvent,
) (ports.LedgerEntry, bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" || event.PollID <= 0 ||
		strings.TrimSpace(event.VoterID) == "" || event.Contribution <= 0 {
		return ports.LedgerEntry{}, false, domainerrors.ErrInvalidInput
	}

	payloadHash := hashPayload(map[string]any{
		"poll_id":      event.PollID,
		"voter_id":     strings.TrimSpace(event.VoterID),
		"option_index": event.OptionIndex,
		"contribution": event.Contribution,
	})
	if s.Dedup != nil {
		alreadyProcessed, err := s.Dedup.ReserveEvent(ctx, eventID, payloadHash, s.now().Add(s.dedupTTL()))
		if err != nil {
			return ports.LedgerEntry{}, false, err
		}
		if alreadyProcessed {
			return ports.LedgerEntry{}, true, nil
		}
	}

	entry, err := s.appendEntry(ctx, ports.LedgerEntry{
		PollID:        event.PollID,
		EntryType:     ports.EntryTypeContribution,
		ActorID:       strings.TrimSpace(event.VoterID),
		Amount:        event.Contribution,
		OccurredAt:    event.OccurredAt,
		SourceEventID: eventID,
	})
	if err != nil {
		return ports.LedgerEntry{}, false, err
	}

	ResolveLogger(s.Logger).Info("contribution journaled",
		"event", "treasury_contribution_journaled",
		"module", "finance-core/treasury-service",
		"layer", "application",
		"entry_id", entry.EntryID,
		"poll_id", entry.PollID,
		"amount", entry.Amount,
	)
	return entry, false, nil
}

// ConsumeFundsWithdrawnEvent accepts zero amounts: a withdrawal of an empty
// escrow still settles, and the journal mirrors every settlement.
func (s Service) ConsumeFundsWithdrawnEvent(
	ctx context.Context,
	eventID string,
	event ports.FundsWithdrawnEvent,
) (ports.LedgerEntry, bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" || event.PollID <= 0 ||
		strings.TrimSpace(event.CreatorID) == "" || event.Amount < 0 {
		return ports.LedgerEntry{}, false, domainerrors.ErrInvalidInput
	}

	payloadHash := hashPayload(map[string]any{
		"poll_id":    event.PollID,
		"creator_id": strings.TrimSpace(event.CreatorID),
		"amount":     event.Amount,
	})
	if s.Dedup != nil {
		alreadyProcessed, err := s.Dedup.ReserveEvent(ctx, eventID, payloadHash, s.now().Add(s.dedupTTL()))
		if err != nil {
			return ports.LedgerEntry{}, false, err
		}
		if alreadyProcessed {
			return ports.LedgerEntry{}, true, nil
		}
	}

	entry, err := s.appendEntry(ctx, ports.LedgerEntry{
		PollID:        event.PollID,
		EntryType:     ports.EntryTypePayout,
		ActorID:       strings.TrimSpace(event.CreatorID),
		Amount:        event.Amount,
		OccurredAt:    event.OccurredAt,
		SourceEventID: eventID,
	})
	if err != nil {
		return ports.LedgerEntry{}, false, err
	}

	ResolveLogger(s.Logger).Info("payout journaled",
		"event", "treasury_payout_journaled",
		"module", "finance-core/treasury-service",
		"layer", "application",
		"entry_id", entry.EntryID,
		"poll_id", entry.PollID,
		"amount", entry.Amount,
	)
	return entry, false, nil
}

func (s Service) PollLedger(ctx context.Context, pollID int64) (ports.PollLedger, error) {
	if pollID <= 0 {
		return ports.PollLedger{}, domainerrors.ErrInvalidInput
	}
	entries, err := s.Ledger.ListEntriesByPoll(ctx, pollID)
	if err != nil {
		return ports.PollLedger{}, err
	}
	ledger := ports.PollLedger{
		PollID:  pollID,
		Entries: entries,
	}
	for _, entry := range entries {
		switch entry.EntryType {
		case ports.EntryTypeContribution:
			ledger.ContributionTotal += entry.Amount
		case ports.EntryTypePayout:
			ledger.PayoutTotal += entry.Amount
		}
	}
	ledger.Outstanding = ledger.ContributionTotal - ledger.PayoutTotal
	return ledger, nil
}

func (s Service) Report(ctx context.Context) (ports.TreasuryReport, error) {
	return s.Ledger.BuildReport(ctx)
}

func (s Service) appendEntry(ctx context.Context, entry ports.LedgerEntry) (ports.LedgerEntry, error) {
	entryID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.LedgerEntry{}, err
	}
	now := s.now()
	entry.EntryID = strings.TrimSpace(entryID)
	entry.RecordedAt = now
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = now
	} else {
		entry.OccurredAt = entry.OccurredAt.UTC()
	}
	if err := s.Ledger.AppendEntry(ctx, entry); err != nil {
		return ports.LedgerEntry{}, err
	}
	return entry, nil
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s Service) dedupTTL() time.Duration {
	if s.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.DedupTTL
}

func hashPayload(payload map[string]any) string {
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
