// Package ai wraps the multimodal model providers that turn a questionnaire prompt and face photos into a routine.
package ai

import (
	"context"

	"github.com/myrjola/skinwise/internal/errors"
)

var ErrEmptyResponse = errors.NewSentinel("model returned an empty response")

// Image is a photo stored on local disk that is attached to the prompt.
type Image struct {
	Name     string
	MIMEType string
	Path     string
}

// Generator produces the raw model text for a prompt and its images.
//
// The returned text is not trusted to be valid JSON. Callers normalize it.
type Generator interface {
	GenerateRoutine(ctx context.Context, prompt string, images []Image) (string, error)
}

// StaticGenerator returns a fixed response. It backs local development without provider credentials and tests.
type StaticGenerator struct {
	Response string
	Err      error
}

func (g StaticGenerator) GenerateRoutine(ctx context.Context, _ string, _ []Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, "static generator")
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}
