package domain

import "errors"

// common domain errors that cross entity boundaries.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrStoreUnavailable wraps failures of the bulk report fetch.
	// the aggregation core never retries, callers decide.
	ErrStoreUnavailable = errors.New("report store unavailable")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCongregationClosed = errors.New("congregation is not active")
)
