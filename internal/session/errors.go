// internal/session/errors.go
package session

import "errors"

// Error taxonomy for session operations. NotFound and Validation are local,
// recoverable and surfaced to the initiating user without mutating state.
// CreateFailed wraps an underlying store rejection during session creation.
var (
	ErrNotFound     = errors.New("session not found")
	ErrValidation   = errors.New("invalid input")
	ErrCreateFailed = errors.New("failed to create session")
)
