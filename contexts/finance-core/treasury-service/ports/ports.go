package ports

import (
	"context"
	"time"

	contractsv1 "ballotbox/contracts/gen/events/v1"
)

const (
	EntryTypeContribution = "contribution"
	EntryTypePayout       = "payout"
)

// LedgerEntry is one append-only journal row. Contributions enter when a
// vote's escrow lands, payouts when a withdrawal settles, so the running
// difference is the balance still held in escrow across all polls.
type LedgerEntry struct {
	EntryID       string
	PollID        int64
	EntryType     string
	ActorID       string
	Amount        int64
	OccurredAt    time.Time
	SourceEventID string
	RecordedAt    time.Time
}

type VoteCastEvent struct {
	PollID       int64
	VoterID      string
	OptionIndex  int
	Contribution int64
	OccurredAt   time.Time
}

type FundsWithdrawnEvent struct {
	PollID     int64
	CreatorID  string
	Amount     int64
	OccurredAt time.Time
}

type PollLedger struct {
	PollID            int64
	Entries           []LedgerEntry
	ContributionTotal int64
	PayoutTotal       int64
	Outstanding       int64
}

type TreasuryReport struct {
	Polls             int
	Entries           int
	ContributionTotal int64
	PayoutTotal       int64
	Outstanding       int64
}

type LedgerRepository interface {
	AppendEntry(ctx context.Context, entry LedgerEntry) error
	ListEntriesByPoll(ctx context.Context, pollID int64) ([]LedgerEntry, error)
	BuildReport(ctx context.Context) (TreasuryReport, error)
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}
