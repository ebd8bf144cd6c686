package commands

import (
	"context"
	"log/slog"
	"time"

	"ballotbox/contexts/governance/poll-service/ports"
)

// defaultMinContribution is the fallback eligibility threshold in the
// currency's smallest unit, used when wiring supplies none.
const defaultMinContribution int64 = 10000

// PollUseCase orchestrates every poll mutation: registration, lifecycle
// transitions, vote recording with escrow, and the two-phase withdrawal.
// Precondition checks run before any mutation; the repository enforces the
// same invariants once more at the storage boundary so concurrent callers
// cannot slip past a stale read.
type PollUseCase struct {
	Polls           ports.PollRepository
	Funds           ports.FundsGateway
	Outbox          ports.OutboxWriter
	Clock           ports.Clock
	IDGen           ports.IDGenerator
	MinContribution int64
	Logger          *slog.Logger
}

func (uc PollUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc PollUseCase) minContribution() int64 {
	if uc.MinContribution > 0 {
		return uc.MinContribution
	}
	return defaultMinContribution
}

func (uc PollUseCase) appendEvent(
	ctx context.Context,
	eventType string,
	pollID int64,
	occurredAt time.Time,
	data map[string]any,
) error {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newPollEnvelope(eventID, eventType, pollID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
