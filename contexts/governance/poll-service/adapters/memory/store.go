package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotbox/contexts/governance/poll-service/domain/entities"
	domainerrors "ballotbox/contexts/governance/poll-service/domain/errors"
	"ballotbox/contexts/governance/poll-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store keeps every poll aggregate behind one mutex, so each repository call
// is a single serialized step and the compare-and-swap contracts hold
// trivially.
type Store struct {
	mu sync.RWMutex

	nextPollID int64
	polls      map[int64]entities.Poll
	voters     map[int64]map[string]entities.VoterRecord
	tallies    map[int64][]int64
	outbox     map[string]outboxRecord
}

func NewStore(seed []entities.Poll) *Store {
	store := &Store{
		nextPollID: 1,
		polls:      make(map[int64]entities.Poll, len(seed)),
		voters:     make(map[int64]map[string]entities.VoterRecord),
		tallies:    make(map[int64][]int64),
		outbox:     make(map[string]outboxRecord),
	}
	for _, poll := range seed {
		store.polls[poll.PollID] = poll
		store.voters[poll.PollID] = make(map[string]entities.VoterRecord)
		store.tallies[poll.PollID] = make([]int64, len(poll.Options))
		if poll.PollID >= store.nextPollID {
			store.nextPollID = poll.PollID + 1
		}
	}
	return store
}

func (s *Store) CreatePoll(_ context.Context, poll entities.Poll) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll.PollID = s.nextPollID
	s.nextPollID++
	s.polls[poll.PollID] = poll
	s.voters[poll.PollID] = make(map[string]entities.VoterRecord)
	s.tallies[poll.PollID] = make([]int64, len(poll.Options))
	return poll.PollID, nil
}

func (s *Store) GetPoll(_ context.Context, pollID int64) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return poll, nil
}

func (s *Store) TransitionPoll(
	_ context.Context,
	pollID int64,
	from entities.PollStatus,
	to entities.PollStatus,
	at time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[pollID]
	if !ok {
		return domainerrors.ErrPollNotFound
	}
	if poll.Status != from {
		return domainerrors.ErrInvalidStateTransition
	}
	poll.Status = to
	poll.UpdatedAt = at.UTC()
	switch to {
	case entities.PollStatusVoting:
		startedAt := at.UTC()
		poll.VotingStartedAt = &startedAt
	case entities.PollStatusEnded:
		endedAt := at.UTC()
		poll.VotingEndedAt = &endedAt
	}
	s.polls[pollID] = poll
	return nil
}

func (s *Store) RecordVote(_ context.Context, record entities.VoterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[record.PollID]
	if !ok {
		return domainerrors.ErrPollNotFound
	}
	if poll.Status != entities.PollStatusVoting {
		return domainerrors.ErrInvalidStateTransition
	}
	counts := s.tallies[record.PollID]
	if record.OptionIndex < 0 || record.OptionIndex >= len(counts) {
		return domainerrors.ErrInvalidOption
	}
	voterID := strings.TrimSpace(record.VoterID)
	voters := s.voters[record.PollID]
	if _, exists := voters[voterID]; exists {
		return domainerrors.ErrAlreadyVoted
	}

	record.VoterID = voterID
	record.CastAt = record.CastAt.UTC()
	voters[voterID] = record
	counts[record.OptionIndex]++
	poll.TotalFunds += record.Contribution
	poll.UpdatedAt = record.CastAt
	s.polls[record.PollID] = poll
	return nil
}

func (s *Store) GetVoterRecord(
	_ context.Context,
	pollID int64,
	voterID string,
) (entities.VoterRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voters, ok := s.voters[pollID]
	if !ok {
		return entities.VoterRecord{}, false, nil
	}
	record, ok := voters[strings.TrimSpace(voterID)]
	if !ok {
		return entities.VoterRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) GetTally(_ context.Context, pollID int64) (entities.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts, ok := s.tallies[pollID]
	if !ok {
		return entities.Tally{}, domainerrors.ErrPollNotFound
	}
	// Copy so callers never observe a concurrent increment.
	copied := make([]int64, len(counts))
	copy(copied, counts)
	return entities.Tally{PollID: pollID, Counts: copied}, nil
}

func (s *Store) DrainFunds(_ context.Context, pollID int64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[pollID]
	if !ok {
		return 0, domainerrors.ErrPollNotFound
	}
	amount := poll.TotalFunds
	poll.TotalFunds = 0
	poll.UpdatedAt = at.UTC()
	if amount > 0 {
		withdrawnAt := at.UTC()
		poll.WithdrawnAt = &withdrawnAt
	}
	s.polls[pollID] = poll
	return amount, nil
}

func (s *Store) RestoreFunds(_ context.Context, pollID int64, amount int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[pollID]
	if !ok {
		return domainerrors.ErrPollNotFound
	}
	poll.TotalFunds += amount
	poll.WithdrawnAt = nil
	poll.UpdatedAt = at.UTC()
	s.polls[pollID] = poll
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
