package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pollhttp "ballotbox/contexts/governance/poll-service/transport/http"
)

func doPollRequest(t *testing.T, server *Server, method string, target string, userID string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestPollLifecycleOverHTTP(t *testing.T) {
	server := newTestServer()

	createBody := []byte(`{"question":"next milestone?","options":["v2 launch","bugfix sprint"]}`)
	createRR := doPollRequest(t, server, http.MethodPost, "/v1/polls", "creator-1", createBody)
	if createRR.Code != http.StatusOK {
		t.Fatalf("create poll failed: %d body=%s", createRR.Code, createRR.Body.String())
	}
	var created pollhttp.PollResponse
	if err := json.Unmarshal(createRR.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.PollID != 1 || created.Status != "created" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	startRR := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/start", "creator-1", nil)
	if startRR.Code != http.StatusOK {
		t.Fatalf("start voting failed: %d body=%s", startRR.Code, startRR.Body.String())
	}
	var started pollhttp.PollResponse
	if err := json.Unmarshal(startRR.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.Status != "voting" || started.VotingStartedAt == "" {
		t.Fatalf("unexpected start response: %+v", started)
	}

	votes := []struct {
		voterID      string
		optionIndex  int
		contribution int64
	}{
		{"voter-1", 1, 10000},
		{"voter-2", 1, 20000},
		{"voter-3", 0, 15000},
	}
	for _, vote := range votes {
		voteBody := []byte(fmt.Sprintf(`{"option_index":%d,"contribution":%d}`, vote.optionIndex, vote.contribution))
		voteRR := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/votes", vote.voterID, voteBody)
		if voteRR.Code != http.StatusOK {
			t.Fatalf("vote by %s failed: %d body=%s", vote.voterID, voteRR.Code, voteRR.Body.String())
		}
		var cast pollhttp.CastVoteResponse
		if err := json.Unmarshal(voteRR.Body.Bytes(), &cast); err != nil {
			t.Fatalf("decode vote response: %v", err)
		}
		if cast.VoterID != vote.voterID || cast.Contribution != vote.contribution {
			t.Fatalf("unexpected vote response: %+v", cast)
		}
	}

	endRR := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/end", "creator-1", nil)
	if endRR.Code != http.StatusOK {
		t.Fatalf("end voting failed: %d body=%s", endRR.Code, endRR.Body.String())
	}

	resultsRR := doPollRequest(t, server, http.MethodGet, "/v1/polls/1/results", "", nil)
	if resultsRR.Code != http.StatusOK {
		t.Fatalf("results failed: %d body=%s", resultsRR.Code, resultsRR.Body.String())
	}
	var results pollhttp.PollResultsResponse
	if err := json.Unmarshal(resultsRR.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results response: %v", err)
	}
	if results.TotalVotes != 3 || results.TotalFunds != 45000 {
		t.Fatalf("unexpected results totals: %+v", results)
	}
	if results.Counts[0] != 1 || results.Counts[1] != 2 {
		t.Fatalf("unexpected results counts: %+v", results.Counts)
	}
	if results.Winners[0] || !results.Winners[1] {
		t.Fatalf("unexpected winner flags: %+v", results.Winners)
	}

	tallyRR := doPollRequest(t, server, http.MethodGet, "/v1/polls/1/tally/1", "", nil)
	if tallyRR.Code != http.StatusOK {
		t.Fatalf("tally failed: %d body=%s", tallyRR.Code, tallyRR.Body.String())
	}
	var tally pollhttp.OptionTallyResponse
	if err := json.Unmarshal(tallyRR.Body.Bytes(), &tally); err != nil {
		t.Fatalf("decode tally response: %v", err)
	}
	if tally.Count != 2 {
		t.Fatalf("unexpected tally count: %+v", tally)
	}

	withdrawRR := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/withdraw", "creator-1", nil)
	if withdrawRR.Code != http.StatusOK {
		t.Fatalf("withdraw failed: %d body=%s", withdrawRR.Code, withdrawRR.Body.String())
	}
	var withdrawal pollhttp.WithdrawFundsResponse
	if err := json.Unmarshal(withdrawRR.Body.Bytes(), &withdrawal); err != nil {
		t.Fatalf("decode withdraw response: %v", err)
	}
	if withdrawal.Amount != 45000 {
		t.Fatalf("unexpected withdrawal amount: %+v", withdrawal)
	}

	repeatRR := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/withdraw", "creator-1", nil)
	if repeatRR.Code != http.StatusOK {
		t.Fatalf("repeat withdraw failed: %d body=%s", repeatRR.Code, repeatRR.Body.String())
	}
	var repeat pollhttp.WithdrawFundsResponse
	if err := json.Unmarshal(repeatRR.Body.Bytes(), &repeat); err != nil {
		t.Fatalf("decode repeat withdraw response: %v", err)
	}
	if repeat.Amount != 0 {
		t.Fatalf("repeat withdrawal moved funds again: %+v", repeat)
	}

	getRR := doPollRequest(t, server, http.MethodGet, "/v1/polls/1", "", nil)
	if getRR.Code != http.StatusOK {
		t.Fatalf("get poll failed: %d body=%s", getRR.Code, getRR.Body.String())
	}
	var final pollhttp.PollResponse
	if err := json.Unmarshal(getRR.Body.Bytes(), &final); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if final.Status != "ended" || final.TotalFunds != 0 || final.WithdrawnAt == "" {
		t.Fatalf("unexpected final poll state: %+v", final)
	}
}

func TestDuplicateVoteOverHTTPMapsToConflict(t *testing.T) {
	server := newTestServer()

	createBody := []byte(`{"question":"tabs or spaces?","options":["tabs","spaces"]}`)
	if rr := doPollRequest(t, server, http.MethodPost, "/v1/polls", "creator-1", createBody); rr.Code != http.StatusOK {
		t.Fatalf("create poll failed: %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/start", "creator-1", nil); rr.Code != http.StatusOK {
		t.Fatalf("start voting failed: %d body=%s", rr.Code, rr.Body.String())
	}

	voteBody := []byte(`{"option_index":0,"contribution":10000}`)
	if rr := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/votes", "voter-1", voteBody); rr.Code != http.StatusOK {
		t.Fatalf("first vote failed: %d body=%s", rr.Code, rr.Body.String())
	}

	rr := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/votes", "voter-1", voteBody)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate vote, got %d body=%s", rr.Code, rr.Body.String())
	}
	var errResp pollhttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != "already_voted" {
		t.Fatalf("unexpected error code: %+v", errResp)
	}
}

func TestLowContributionOverHTTPMapsToUnprocessable(t *testing.T) {
	server := newTestServer()

	createBody := []byte(`{"question":"logo color?","options":["blue","green"]}`)
	if rr := doPollRequest(t, server, http.MethodPost, "/v1/polls", "creator-1", createBody); rr.Code != http.StatusOK {
		t.Fatalf("create poll failed: %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/start", "creator-1", nil); rr.Code != http.StatusOK {
		t.Fatalf("start voting failed: %d body=%s", rr.Code, rr.Body.String())
	}

	rr := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/votes", "voter-1", []byte(`{"option_index":0,"contribution":500}`))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for low contribution, got %d body=%s", rr.Code, rr.Body.String())
	}
	var errResp pollhttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != "insufficient_contribution" {
		t.Fatalf("unexpected error code: %+v", errResp)
	}
}

func TestWithdrawDuringVotingOverHTTPMapsToConflict(t *testing.T) {
	server := newTestServer()

	createBody := []byte(`{"question":"merge policy?","options":["squash","rebase"]}`)
	if rr := doPollRequest(t, server, http.MethodPost, "/v1/polls", "creator-1", createBody); rr.Code != http.StatusOK {
		t.Fatalf("create poll failed: %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/start", "creator-1", nil); rr.Code != http.StatusOK {
		t.Fatalf("start voting failed: %d body=%s", rr.Code, rr.Body.String())
	}

	rr := doPollRequest(t, server, http.MethodPost, "/v1/polls/1/withdraw", "creator-1", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for withdraw during voting, got %d body=%s", rr.Code, rr.Body.String())
	}
}
