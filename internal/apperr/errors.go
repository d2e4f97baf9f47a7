// Package apperr defines the error taxonomy shared across services and
// handlers. Services wrap these sentinels with context; handlers map them
// to HTTP status codes with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound means a partner, referral, tenant or commission does not
	// exist. Not retryable without correcting the input.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a duplicate attribution for a tenant or an
	// idempotency hit on commission calculation.
	ErrConflict = errors.New("conflict")

	// ErrValidation means required input is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream means the persistence collaborator or another upstream
	// dependency failed. Retryable.
	ErrUpstream = errors.New("upstream failure")
)
