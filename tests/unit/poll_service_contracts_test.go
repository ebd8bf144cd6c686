package unit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	pollservice "ballotbox/contexts/governance/poll-service"
	httptransport "ballotbox/contexts/governance/poll-service/transport/http"
)

func TestPollServiceOpenAPIContractIncludesImplementedRoutes(t *testing.T) {
	root, err := findRepoRoot()
	if err != nil {
		t.Fatalf("resolve repo root: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "contracts", "api", "v1", "poll-service.openapi.json"))
	if err != nil {
		t.Fatalf("read poll-service openapi: %v", err)
	}

	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode poll-service openapi: %v", err)
	}

	expected := map[string][]string{
		"/v1/polls":                                 {"post"},
		"/v1/polls/{poll_id}":                       {"get"},
		"/v1/polls/{poll_id}/start":                 {"post"},
		"/v1/polls/{poll_id}/end":                   {"post"},
		"/v1/polls/{poll_id}/votes":                 {"post"},
		"/v1/polls/{poll_id}/withdraw":              {"post"},
		"/v1/polls/{poll_id}/results":               {"get"},
		"/v1/polls/{poll_id}/tally/{option_index}":  {"get"},
		"/v1/treasury/polls/{poll_id}/ledger":       {"get"},
		"/v1/treasury/report":                       {"get"},
	}

	for path, methods := range expected {
		ops, ok := doc.Paths[path]
		if !ok {
			t.Fatalf("missing path in openapi contract: %s", path)
		}
		for _, method := range methods {
			if _, ok := ops[method]; !ok {
				t.Fatalf("missing method %s for path %s in openapi contract", method, path)
			}
		}
	}
}

func TestPollEventsContractCoversEmittedTypes(t *testing.T) {
	root, err := findRepoRoot()
	if err != nil {
		t.Fatalf("resolve repo root: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(root, "contracts", "events", "v1", "poll-events.json"))
	if err != nil {
		t.Fatalf("read poll events contract: %v", err)
	}

	var contract struct {
		SchemaVersion    int                        `json:"schema_version"`
		SourceService    string                     `json:"source_service"`
		PartitionKeyPath string                     `json:"partition_key_path"`
		Events           map[string]json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(raw, &contract); err != nil {
		t.Fatalf("decode poll events contract: %v", err)
	}

	if contract.SchemaVersion != 1 {
		t.Fatalf("unexpected schema_version: %d", contract.SchemaVersion)
	}
	if contract.SourceService != "poll-service" {
		t.Fatalf("unexpected source_service: %q", contract.SourceService)
	}
	if contract.PartitionKeyPath != "poll_id" {
		t.Fatalf("unexpected partition_key_path: %q", contract.PartitionKeyPath)
	}

	emitted := []string{
		"poll.created",
		"poll.voting_started",
		"poll.voting_ended",
		"poll.vote_cast",
		"poll.funds_withdrawn",
	}
	for _, eventType := range emitted {
		if _, ok := contract.Events[eventType]; !ok {
			t.Fatalf("events contract missing emitted type %s", eventType)
		}
	}
	if len(contract.Events) != len(emitted) {
		t.Fatalf("events contract lists %d types, emitter produces %d", len(contract.Events), len(emitted))
	}
}

func TestPollServiceEmittedEnvelopeContractConsistency(t *testing.T) {
	module := pollservice.NewInMemoryModule(nil, nil)
	ctx := context.Background()

	created, err := module.Handler.CreatePollHandler(ctx, "creator-contract-1", httptransport.CreatePollRequest{
		Question: "contract poll",
		Options:  []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("create poll failed: %v", err)
	}
	if _, err := module.Handler.StartVotingHandler(ctx, "creator-contract-1", created.PollID); err != nil {
		t.Fatalf("start voting failed: %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(ctx, "voter-contract-1", created.PollID, httptransport.CastVoteRequest{
		OptionIndex:  1,
		Contribution: 15000,
	}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if _, err := module.Handler.EndVotingHandler(ctx, "creator-contract-1", created.PollID); err != nil {
		t.Fatalf("end voting failed: %v", err)
	}
	if _, err := module.Handler.WithdrawFundsHandler(ctx, "creator-contract-1", created.PollID); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	pendingOutbox, err := module.Store.ListPendingOutbox(ctx, 100)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}

	expectedTypes := map[string]bool{
		"poll.created":         false,
		"poll.voting_started":  false,
		"poll.vote_cast":       false,
		"poll.voting_ended":    false,
		"poll.funds_withdrawn": false,
	}

	for _, message := range pendingOutbox {
		var envelope map[string]any
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			t.Fatalf("decode outbox envelope failed: %v", err)
		}
		eventType, _ := envelope["event_type"].(string)
		if _, tracked := expectedTypes[eventType]; tracked {
			expectedTypes[eventType] = true
		}
		if !strings.HasPrefix(eventType, "poll.") {
			continue
		}

		if sourceService, _ := envelope["source_service"].(string); sourceService != "poll-service" {
			t.Fatalf("poll event has invalid source_service %q", sourceService)
		}
		if traceID, _ := envelope["trace_id"].(string); strings.TrimSpace(traceID) == "" {
			t.Fatalf("poll event %s missing trace_id", eventType)
		}
		if version, _ := envelope["schema_version"].(float64); version != 1 {
			t.Fatalf("poll event %s has schema_version %v", eventType, version)
		}
		if partitionPath, _ := envelope["partition_key_path"].(string); partitionPath != "poll_id" {
			t.Fatalf("poll event %s has invalid partition_key_path %q", eventType, partitionPath)
		}
		partitionKey, _ := envelope["partition_key"].(string)
		if partitionKey != strconv.FormatInt(created.PollID, 10) {
			t.Fatalf("poll event %s has partition_key %q, want poll id %d", eventType, partitionKey, created.PollID)
		}

		data, _ := envelope["data"].(map[string]any)
		dataPollID, _ := data["poll_id"].(float64)
		if strconv.FormatInt(int64(dataPollID), 10) != partitionKey {
			t.Fatalf("poll event %s partition mismatch: data.poll_id=%v partition_key=%q", eventType, dataPollID, partitionKey)
		}
	}

	for eventType, seen := range expectedTypes {
		if !seen {
			t.Fatalf("expected emitted event type not found in outbox: %s", eventType)
		}
	}
}
