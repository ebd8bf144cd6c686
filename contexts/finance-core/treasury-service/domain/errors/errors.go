package errors

import "errors"

var (
	ErrInvalidInput = errors.New("treasury ledger input is invalid")
	ErrConflict     = errors.New("event already reserved with a different payload")
)
