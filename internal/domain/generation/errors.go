package generation

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by Submit when Reset or another Submit replaced
// the session while the request was in flight.
var ErrSuperseded = errors.New("generation session superseded")

// ValidationError rejects input before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// SubmissionError means the backend did not accept the generation.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to start generation: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
