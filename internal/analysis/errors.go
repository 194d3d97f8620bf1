package analysis

import (
	"github.com/myrjola/skinwise/internal/errors"
)

var ErrValidation = errors.NewSentinel("invalid submission")

// UpstreamError reports that the model provider failed to produce a response.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "upstream model: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
