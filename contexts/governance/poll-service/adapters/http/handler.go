package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "ballotbox/contexts/governance/poll-service/application"
	"ballotbox/contexts/governance/poll-service/application/commands"
	"ballotbox/contexts/governance/poll-service/application/queries"
	"ballotbox/contexts/governance/poll-service/domain/entities"
	httptransport "ballotbox/contexts/governance/poll-service/transport/http"
)

type Handler struct {
	Polls   commands.PollUseCase
	Results queries.ResultsUseCase
	Logger  *slog.Logger
}

// CreatePollHandler godoc
// @Summary Create a poll
// @Description Registers a poll with at least two options. The caller becomes the creator.
// @Tags poll-service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id"
// @Param request body httptransport.CreatePollRequest true "Poll payload"
// @Success 200 {object} httptransport.PollResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls [post]
func (h Handler) CreatePollHandler(
	ctx context.Context,
	userID string,
	req httptransport.CreatePollRequest,
) (httptransport.PollResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("create poll request received",
		"event", "http_create_poll_received",
		"module", "governance/poll-service",
		"layer", "transport",
	)

	result, err := h.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		CreatorID: userID,
		Question:  req.Question,
		Options:   req.Options,
	})
	if err != nil {
		logger.Error("create poll request failed",
			"event", "http_create_poll_failed",
			"module", "governance/poll-service",
			"layer", "transport",
			"error", err.Error(),
		)
		return httptransport.PollResponse{}, err
	}
	return mapPoll(result.Poll), nil
}

// GetPollHandler godoc
// @Summary Get a poll
// @Description Returns one poll by id.
// @Tags poll-service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id"
// @Param poll_id path int true "Poll id"
// @Success 200 {object} httptransport.PollResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id} [get]
func (h Handler) GetPollHandler(ctx context.Context, pollID int64) (httptransport.PollResponse, error) {
	poll, err := h.Results.Poll(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(poll), nil
}

// StartVotingHandler godoc
// @Summary Open voting on a poll
// @Description Moves a created poll into the voting state. Creator only.
// @Tags poll-service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id"
// @Param poll_id path int true "Poll id"
// @Success 200 {object} httptransport.PollResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id}/start [post]
func (h Handler) StartVotingHandler(ctx context.Context, userID string, pollID int64) (httptransport.PollResponse, error) {
	result, err := h.Polls.StartVoting(ctx, commands.StartVotingCommand{
		PollID:  pollID,
		ActorID: userID,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(result.Poll), nil
}

// EndVotingHandler godoc
// @Summary Close voting on a poll
// @Description Moves a voting poll into the ended state and freezes the tally. Creator only.
// @Tags poll-service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id"
// @Param poll_id path int true "Poll id"
// @Success 200 {object} httptransport.PollResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id}/end [post]
func (h Handler) EndVotingHandler(ctx context.Context, userID string, pollID int64) (httptransport.PollResponse, error) {
	result, err := h.Polls.EndVoting(ctx, commands.EndVotingCommand{
		PollID:  pollID,
		ActorID: userID,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(result.Poll), nil
}

// CastVoteHandler godoc
// @Summary Cast a vote
// @Description Records one vote per user with its escrowed contribution.
// @Tags poll-service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id"
// @Param poll_id path int true "Poll id"
// @Param request body httptransport.CastVoteRequest true "Vote payload"
// @Success 200 {object} httptransport.CastVoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id}/votes [post]
func (h Handler) CastVoteHandler(
	ctx context.Context,
	userID string,
	pollID int64,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Polls.CastVote(ctx, commands.CastVoteCommand{
		PollID:       pollID,
		VoterID:      userID,
		OptionIndex:  req.OptionIndex,
		Contribution: req.Contribution,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		PollID:       result.Record.PollID,
		VoterID:      result.Record.VoterID,
		OptionIndex:  result.Record.OptionIndex,
		Contribution: result.Record.Contribution,
		CastAt:       formatTime(result.Record.CastAt),
	}, nil
}

// WithdrawFundsHandler godoc
// @Summary Withdraw escrowed funds
// @Description Releases the poll's escrow to the creator after voting has ended. Creator only.
// @Tags poll-service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id"
// @Param poll_id path int true "Poll id"
// @Success 200 {object} httptransport.WithdrawFundsResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id}/withdraw [post]
func (h Handler) WithdrawFundsHandler(ctx context.Context, userID string, pollID int64) (httptransport.WithdrawFundsResponse, error) {
	result, err := h.Polls.WithdrawFunds(ctx, commands.WithdrawFundsCommand{
		PollID:  pollID,
		ActorID: userID,
	})
	if err != nil {
		return httptransport.WithdrawFundsResponse{}, err
	}
	return httptransport.WithdrawFundsResponse{
		PollID:    result.PollID,
		CreatorID: result.CreatorID,
		Amount:    result.Amount,
	}, nil
}

// PollResultsHandler godoc
// @Summary Get poll results
// @Description Returns per-option counts and winner flags. Every option tied at the maximum count wins.
// @Tags poll-service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id"
// @Param poll_id path int true "Poll id"
// @Success 200 {object} httptransport.PollResultsResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id}/results [get]
func (h Handler) PollResultsHandler(ctx context.Context, pollID int64) (httptransport.PollResultsResponse, error) {
	results, err := h.Results.Results(ctx, pollID)
	if err != nil {
		return httptransport.PollResultsResponse{}, err
	}
	return httptransport.PollResultsResponse{
		PollID:     results.PollID,
		Question:   results.Question,
		Options:    results.Options,
		Status:     string(results.Status),
		Counts:     results.Counts,
		Winners:    results.Winners,
		TotalVotes: results.TotalVotes,
		TotalFunds: results.TotalFunds,
	}, nil
}

// OptionTallyHandler godoc
// @Summary Get one option's tally
// @Description Returns the vote count for a single option index.
// @Tags poll-service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id"
// @Param poll_id path int true "Poll id"
// @Param option_index path int true "Option index"
// @Success 200 {object} httptransport.OptionTallyResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id}/tally/{option_index} [get]
func (h Handler) OptionTallyHandler(ctx context.Context, pollID int64, optionIndex int) (httptransport.OptionTallyResponse, error) {
	count, err := h.Results.OptionTally(ctx, pollID, optionIndex)
	if err != nil {
		return httptransport.OptionTallyResponse{}, err
	}
	return httptransport.OptionTallyResponse{
		PollID:      pollID,
		OptionIndex: optionIndex,
		Count:       count,
	}, nil
}

func mapPoll(poll entities.Poll) httptransport.PollResponse {
	return httptransport.PollResponse{
		PollID:          poll.PollID,
		Question:        poll.Question,
		Options:         poll.Options,
		Status:          string(poll.Status),
		CreatorID:       poll.CreatorID,
		TotalFunds:      poll.TotalFunds,
		CreatedAt:       formatTime(poll.CreatedAt),
		VotingStartedAt: formatOptionalTime(poll.VotingStartedAt),
		VotingEndedAt:   formatOptionalTime(poll.VotingEndedAt),
		WithdrawnAt:     formatOptionalTime(poll.WithdrawnAt),
	}
}

func formatTime(value time.Time) string {
	return value.UTC().Format("2006-01-02T15:04:05Z")
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}
