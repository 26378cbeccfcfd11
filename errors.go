package drip

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a store key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrThreadNotFound indicates no registry entry exists for a thread id.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrSessionActive indicates a submission for a thread that already has
	// a running session.
	ErrSessionActive = errors.New("session already active for thread")

	// ErrNoResponseBody indicates the backend answered without a body.
	ErrNoResponseBody = errors.New("no response body")

	// ErrMalformedEvent indicates a line that is not a valid event.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)
