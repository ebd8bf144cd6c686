package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	domainerrors "ballotbox/contexts/finance-core/treasury-service/domain/errors"
	"ballotbox/contexts/finance-core/treasury-service/ports"

	"github.com/google/uuid"
)

// Store keeps the journal as an append-only slice, so entries list in the
// order they were recorded.
type Store struct {
	mu sync.RWMutex

	entries    []ports.LedgerEntry
	eventDedup map[string]dedupRecord
}

type dedupRecord struct {
	PayloadHash string
	ExpiresAt   time.Time
}

func NewStore() *Store {
	return &Store{
		entries:    make([]ports.LedgerEntry, 0),
		eventDedup: make(map[string]dedupRecord),
	}
}

func (s *Store) AppendEntry(_ context.Context, entry ports.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(entry.EntryID) == "" || entry.PollID <= 0 {
		return domainerrors.ErrInvalidInput
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) ListEntriesByPoll(_ context.Context, pollID int64) ([]ports.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.LedgerEntry, 0)
	for _, entry := range s.entries {
		if entry.PollID == pollID {
			items = append(items, entry)
		}
	}
	return items, nil
}

func (s *Store) BuildReport(_ context.Context) (ports.TreasuryReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := ports.TreasuryReport{}
	polls := make(map[int64]struct{})
	for _, entry := range s.entries {
		polls[entry.PollID] = struct{}{}
		report.Entries++
		switch entry.EntryType {
		case ports.EntryTypeContribution:
			report.ContributionTotal += entry.Amount
		case ports.EntryTypePayout:
			report.PayoutTotal += entry.Amount
		}
	}
	report.Polls = len(polls)
	report.Outstanding = report.ContributionTotal - report.PayoutTotal
	return report, nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if key == "" {
		return false, domainerrors.ErrInvalidInput
	}
	if existing, ok := s.eventDedup[key]; ok {
		if existing.PayloadHash != payloadHash {
			return false, domainerrors.ErrConflict
		}
		return true, nil
	}
	s.eventDedup[key] = dedupRecord{
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
