package queries

import (
	"context"

	"ballotbox/contexts/governance/poll-service/domain/entities"
	domainerrors "ballotbox/contexts/governance/poll-service/domain/errors"
	"ballotbox/contexts/governance/poll-service/ports"
)

type ResultsUseCase struct {
	Polls ports.PollRepository
}

func (uc ResultsUseCase) Poll(ctx context.Context, pollID int64) (entities.Poll, error) {
	return uc.Polls.GetPoll(ctx, pollID)
}

// Results joins the poll with its tally and derives the winner flags. When no
// vote has been cast every count ties at zero, so every option is a winner.
func (uc ResultsUseCase) Results(ctx context.Context, pollID int64) (entities.PollResults, error) {
	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return entities.PollResults{}, err
	}
	tally, err := uc.Polls.GetTally(ctx, pollID)
	if err != nil {
		return entities.PollResults{}, err
	}
	return entities.PollResults{
		PollID:     poll.PollID,
		Question:   poll.Question,
		Options:    poll.Options,
		Status:     poll.Status,
		Counts:     tally.Counts,
		Winners:    tally.WinnerFlags(),
		TotalVotes: tally.TotalVotes(),
		TotalFunds: poll.TotalFunds,
	}, nil
}

func (uc ResultsUseCase) OptionTally(ctx context.Context, pollID int64, optionIndex int) (int64, error) {
	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return 0, err
	}
	if !poll.HasOption(optionIndex) {
		return 0, domainerrors.ErrInvalidOption
	}
	tally, err := uc.Polls.GetTally(ctx, pollID)
	if err != nil {
		return 0, err
	}
	if optionIndex >= len(tally.Counts) {
		return 0, nil
	}
	return tally.Counts[optionIndex], nil
}
