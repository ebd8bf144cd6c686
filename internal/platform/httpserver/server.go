package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	treasuryservice "ballotbox/contexts/finance-core/treasury-service"
	treasuryerrors "ballotbox/contexts/finance-core/treasury-service/domain/errors"
	treasuryhttp "ballotbox/contexts/finance-core/treasury-service/transport/http"
	pollservice "ballotbox/contexts/governance/poll-service"
	pollerrors "ballotbox/contexts/governance/poll-service/domain/errors"
	pollhttp "ballotbox/contexts/governance/poll-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "ballotbox/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	polls    pollservice.Module
	treasury treasuryservice.Module
}

func New(
	polls pollservice.Module,
	treasury treasuryservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		polls:    polls,
		treasury: treasury,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/polls", s.handleCreatePoll)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/start", s.handleStartVoting)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/end", s.handleEndVoting)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/withdraw", s.handleWithdrawFunds)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/results", s.handlePollResults)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/tally/{option_index}", s.handleOptionTally)

	s.mux.HandleFunc("GET /v1/treasury/polls/{poll_id}/ledger", s.handleTreasuryPollLedger)
	s.mux.HandleFunc("GET /v1/treasury/report", s.handleTreasuryReport)
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writePollError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req pollhttp.CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.polls.Handler.CreatePollHandler(r.Context(), userID, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}

	resp, err := s.polls.Handler.GetPollHandler(r.Context(), pollID)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartVoting(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writePollError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}

	resp, err := s.polls.Handler.StartVotingHandler(r.Context(), userID, pollID)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndVoting(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writePollError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}

	resp, err := s.polls.Handler.EndVotingHandler(r.Context(), userID, pollID)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writePollError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}

	var req pollhttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.polls.Handler.CastVoteHandler(r.Context(), userID, pollID, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawFunds(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writePollError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}

	resp, err := s.polls.Handler.WithdrawFundsHandler(r.Context(), userID, pollID)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollResults(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}

	resp, err := s.polls.Handler.PollResultsHandler(r.Context(), pollID)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOptionTally(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parsePollID(w, r)
	if !ok {
		return
	}
	optionIndex, err := strconv.Atoi(r.PathValue("option_index"))
	if err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_option_index", "option_index must be an integer")
		return
	}

	resp, err := s.polls.Handler.OptionTallyHandler(r.Context(), pollID, optionIndex)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasuryPollLedger(w http.ResponseWriter, r *http.Request) {
	pollID, err := strconv.ParseInt(r.PathValue("poll_id"), 10, 64)
	if err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_poll_id", "poll_id must be an integer")
		return
	}

	resp, err := s.treasury.Handler.PollLedgerHandler(r.Context(), pollID)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasuryReport(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.ReportHandler(r.Context())
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parsePollID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	pollID, err := strconv.ParseInt(r.PathValue("poll_id"), 10, 64)
	if err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_poll_id", "poll_id must be an integer")
		return 0, false
	}
	return pollID, true
}

func writePollDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pollerrors.ErrPollNotFound):
		writePollError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, pollerrors.ErrInvalidPollInput):
		writePollError(w, http.StatusBadRequest, "invalid_poll_input", err.Error())
	case errors.Is(err, pollerrors.ErrInvalidOptionCount):
		writePollError(w, http.StatusUnprocessableEntity, "invalid_option_count", err.Error())
	case errors.Is(err, pollerrors.ErrUnauthorized):
		writePollError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, pollerrors.ErrInvalidStateTransition):
		writePollError(w, http.StatusConflict, "invalid_state_transition", err.Error())
	case errors.Is(err, pollerrors.ErrAlreadyVoted):
		writePollError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, pollerrors.ErrInsufficientContribution):
		writePollError(w, http.StatusUnprocessableEntity, "insufficient_contribution", err.Error())
	case errors.Is(err, pollerrors.ErrInvalidOption):
		writePollError(w, http.StatusUnprocessableEntity, "invalid_option", err.Error())
	case errors.Is(err, pollerrors.ErrTransferFailed):
		writePollError(w, http.StatusBadGateway, "transfer_failed", err.Error())
	case errors.Is(err, pollerrors.ErrConflict):
		writePollError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writePollError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTreasuryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, treasuryerrors.ErrInvalidInput):
		writeTreasuryError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, treasuryerrors.ErrConflict):
		writeTreasuryError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeTreasuryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePollError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pollhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeTreasuryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, treasuryhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
