package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidEvent        = errors.New("invalid event: id is required")
	ErrMissingIdentity     = errors.New("recipientIdentity is required")
	ErrNoCredential        = errors.New("no push credential registered for recipient")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrBatchInFlight       = errors.New("dispatch batch is already in flight")
	ErrBatchCompleted      = errors.New("dispatch batch already completed")
)
