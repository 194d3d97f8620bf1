// Package analysis is the server side of the submission round trip: it validates the multipart intake, asks the
// model for a routine, normalizes the answer and records it for the owner.
package analysis

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/myrjola/skinwise/internal/ai"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/routine"
)

// ReportCreator persists a finished report for its owner.
type ReportCreator interface {
	Create(ctx context.Context, userID []byte, data json.RawMessage) (string, error)
}

// Outcome is the result of a successful analysis.
type Outcome struct {
	// ReportID is empty when the report was not persisted.
	ReportID string
	Report   routine.Report
	Raw      string
}

type Service struct {
	generator ai.Generator
	reports   ReportCreator
	logger    *slog.Logger
	timeout   time.Duration
	validator *validator.Validate
}

// NewService creates the service. A zero timeout leaves the deadline to the caller's context.
func NewService(generator ai.Generator, reports ReportCreator, logger *slog.Logger, timeout time.Duration) *Service {
	return &Service{
		generator: generator,
		reports:   reports,
		logger:    logger.With(slog.String("source", "analysis.Service")),
		timeout:   timeout,
		validator: newValidator(),
	}
}

// Analyze turns the submission into a routine report.
//
// The report is stored when userID is not nil. A failed write is logged and the report is still returned without
// an id.
func (s *Service) Analyze(ctx context.Context, userID []byte, sub Submission) (*Outcome, error) {
	if err := s.validate(sub); err != nil {
		return nil, err
	}

	prompt, err := buildPrompt(sub.Fields, len(sub.Images))
	if err != nil {
		return nil, errors.Wrap(err, "build prompt")
	}
	images := make([]ai.Image, 0, len(sub.Images))
	for _, blob := range sub.Images {
		images = append(images, ai.Image{Name: blob.Name, MIMEType: blob.ContentType, Path: blob.Path})
	}

	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	raw, err := s.generator.GenerateRoutine(genCtx, prompt, images)
	if err != nil {
		return nil, &UpstreamError{Err: errors.Wrap(err, "generate routine")}
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "routine generated",
		slog.Duration("duration", time.Since(start)), slog.Int("raw_bytes", len(raw)))

	outcome := &Outcome{ReportID: "", Report: routine.Normalize(raw), Raw: raw}
	if userID == nil {
		return outcome, nil
	}

	data, err := json.Marshal(outcome.Report)
	if err != nil {
		return nil, errors.Wrap(err, "encode report")
	}
	if outcome.ReportID, err = s.reports.Create(ctx, userID, data); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to persist report",
			slog.String("user_id", hex.EncodeToString(userID)), errors.SlogError(err))
		outcome.ReportID = ""
	}
	return outcome, nil
}
