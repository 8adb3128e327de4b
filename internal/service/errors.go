package service

import "errors"

var (
	// ErrInvalidInput marks a malformed invocation payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSnapshot marks a failed snapshot read from the store.
	ErrSnapshot = errors.New("snapshot fetch failed")
	// ErrUnknownOperation is returned for run kinds the dispatcher cannot execute.
	ErrUnknownOperation = errors.New("unknown operation")
)
