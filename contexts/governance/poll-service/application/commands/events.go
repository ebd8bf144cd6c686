package commands

import (
	"encoding/json"
	"strconv"
	"time"

	"ballotbox/contexts/governance/poll-service/ports"
)

const (
	EventTypePollCreated    = "poll.created"
	EventTypeVotingStarted  = "poll.voting_started"
	EventTypeVotingEnded    = "poll.voting_ended"
	EventTypeVoteCast       = "poll.vote_cast"
	EventTypeFundsWithdrawn = "poll.funds_withdrawn"
)

func newPollEnvelope(
	eventID string,
	eventType string,
	pollID int64,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Poll events are partitioned by poll id so per-poll ordering survives on
	// poll-scoped consumers.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "poll-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "poll_id",
		PartitionKey:     strconv.FormatInt(pollID, 10),
		Data:             payload,
	}, nil
}
