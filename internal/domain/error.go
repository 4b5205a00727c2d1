package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidSession     = errors.New("invalid checkout session identifier")
	ErrAlreadyProcessed   = errors.New("webhook event already processed")
	ErrEventInFlight      = errors.New("webhook event is being processed")
	ErrMissingCorrelation = errors.New("event is missing correlation metadata")
	ErrBackendUnavailable = errors.New("backend api unavailable")
	ErrMalformedResponse  = errors.New("malformed backend response")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
