package ports

import (
	"context"
	"time"

	"ballotbox/contexts/governance/poll-service/domain/entities"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

// PollRepository is the atomic mutation boundary for the poll aggregate.
// Implementations must make each method all-or-nothing: a failed call leaves
// poll state, voter records, tallies, and funds untouched.
type PollRepository interface {
	// CreatePoll assigns the next monotonic poll id, stores the poll, and
	// materializes a zero tally row per option. Returns the assigned id.
	CreatePoll(ctx context.Context, poll entities.Poll) (int64, error)
	GetPoll(ctx context.Context, pollID int64) (entities.Poll, error)

	// TransitionPoll applies a lifecycle transition only when the poll is
	// still in from; a stale from fails with ErrInvalidStateTransition.
	TransitionPoll(ctx context.Context, pollID int64, from entities.PollStatus, to entities.PollStatus, at time.Time) error

	// RecordVote atomically stores the voter record, increments the option's
	// tally, and adds the contribution to the poll's funds. A duplicate
	// (poll, voter) pair fails with ErrAlreadyVoted; a poll outside the
	// voting state fails with ErrInvalidStateTransition.
	RecordVote(ctx context.Context, record entities.VoterRecord) error
	GetVoterRecord(ctx context.Context, pollID int64, voterID string) (entities.VoterRecord, bool, error)
	GetTally(ctx context.Context, pollID int64) (entities.Tally, error)

	// DrainFunds atomically reads and zeroes the poll's funds, returning the
	// drained amount. A concurrent balance change fails with ErrConflict so
	// no two drains can observe the same balance.
	DrainFunds(ctx context.Context, pollID int64, at time.Time) (int64, error)
	// RestoreFunds compensates a drain whose external transfer failed.
	RestoreFunds(ctx context.Context, pollID int64, amount int64, at time.Time) error
}

// FundsGateway moves escrowed value to a caller-controlled destination. It is
// the single external failure point of the withdrawal protocol.
type FundsGateway interface {
	Transfer(ctx context.Context, destination string, amount int64) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}
