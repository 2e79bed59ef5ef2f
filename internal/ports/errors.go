package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrNotFound        = errors.New("resource not found")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Configuration
	ErrConfigInvalid = errors.New("invalid or missing configuration")

	// Computation Errors (recovered locally as NoData or a skipped publish)
	ErrInsufficientHistory = errors.New("requested horizon exceeds history buffer contents")
	ErrOutOfOrder          = errors.New("observation is older than the history head")
	ErrInvalidObservation  = errors.New("observation has invalid price or volume")
	ErrInternalInvariant   = errors.New("internal invariant violated")

	// Feed Errors
	ErrFeedTransient     = errors.New("observation feed read failed")
	ErrConnectionFailed  = errors.New("failed to connect to the upstream feed")
	ErrRateLimited       = errors.New("upstream API rate limit exceeded")
	ErrInvalidFeedRecord = errors.New("upstream record could not be parsed")

	// Shared State Store Errors
	ErrStoreTransient  = errors.New("state store write failed")
	ErrStorePersistent = errors.New("state store failing persistently")
	ErrPublishDeferred = errors.New("publish deferred by backoff")
)
