package errors

import "errors"

var (
	ErrPollNotFound             = errors.New("poll not found")
	ErrInvalidPollInput         = errors.New("invalid poll input")
	ErrInvalidOptionCount       = errors.New("poll requires at least two options")
	ErrUnauthorized             = errors.New("caller is not the poll creator")
	ErrInvalidStateTransition   = errors.New("poll state does not permit this action")
	ErrAlreadyVoted             = errors.New("voter has already voted on this poll")
	ErrInsufficientContribution = errors.New("contribution is below the required minimum")
	ErrInvalidOption            = errors.New("option index is out of range")
	ErrTransferFailed           = errors.New("funds transfer did not complete")
	ErrConflict                 = errors.New("poll write conflict")
)
