package submission

import (
	"fmt"

	"github.com/myrjola/skinwise/internal/errors"
)

var (
	// ErrValidation is returned before any network I/O when the payload cannot be submitted.
	ErrValidation = errors.NewSentinel("submission validation failed")
	// ErrSubmissionInProgress is returned when Submit is called while another submission is in flight.
	ErrSubmissionInProgress = errors.NewSentinel("a submission is already in progress")
	// ErrInvalidResponseShape is returned when a successful response lacks the boolean ok field.
	ErrInvalidResponseShape = errors.NewSentinel("invalid response shape")
)

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("submission transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError carries a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("submission failed with status %d: %s", e.StatusCode, e.Body)
}

// RejectedError is a 2xx response that reported {"ok": false}.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "submission rejected: " + e.Message
}

// Message extracts the user-facing part of a submission failure.
func Message(err error) string {
	var (
		statusErr    *StatusError
		rejectedErr  *RejectedError
		transportErr *TransportError
	)
	switch {
	case errors.As(err, &rejectedErr):
		return rejectedErr.Message
	case errors.As(err, &statusErr):
		if msg := errorField(statusErr.Body); msg != "" {
			return msg
		}
		return fmt.Sprintf("the server responded with status %d", statusErr.StatusCode)
	case errors.As(err, &transportErr):
		return "could not reach the server, check your connection and try again"
	case errors.Is(err, ErrSubmissionInProgress):
		return "a submission is already in progress"
	case errors.Is(err, ErrValidation):
		return "please upload all three face photos before submitting"
	case err != nil:
		return "something went wrong while analysing your skin"
	}
	return ""
}
