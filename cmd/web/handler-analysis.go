package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/myrjola/skinwise/internal/analysis"
	"github.com/myrjola/skinwise/internal/blobstore"
	"github.com/myrjola/skinwise/internal/contexthelpers"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/routine"
)

type analysisResponse struct {
	OK     bool           `json:"ok"`
	Result routine.Report `json:"result"`
	ID     string         `json:"id,omitempty"`
}

// apiAnalysis accepts the multipart submission, asks the model for a routine and stores it for a known caller.
func (app *application) apiAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.cfg.MaxBodyBytes)

	scope, err := app.blobs.NewScope()
	if err != nil {
		app.serverErrorJSON(w, r, errors.Wrap(err, "new upload scope"))
		return
	}
	defer app.closeScope(r.Context(), scope)

	sub, err := analysis.ReadMultipart(r, scope, app.cfg.MaxImageBytes)
	if err != nil {
		app.analysisError(w, r, err)
		return
	}

	outcome, err := app.analysis.Analyze(r.Context(), contexthelpers.AuthenticatedUserID(r.Context()), sub)
	if err != nil {
		app.analysisError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, analysisResponse{OK: true, Result: outcome.Report, ID: outcome.ReportID})
}

func (app *application) closeScope(ctx context.Context, scope *blobstore.Scope) {
	if err := scope.Close(); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "failed to remove uploads", errors.SlogError(err))
	}
}

// analysisError maps analysis failures onto a JSON failure body with a matching status.
func (app *application) analysisError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		maxBytesErr *http.MaxBytesError
		upstreamErr *analysis.UpstreamError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		app.clientError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, blobstore.ErrTooLarge):
		app.clientError(w, r, http.StatusRequestEntityTooLarge, "image too large")
	case errors.Is(err, analysis.ErrValidation):
		app.clientError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		app.logServerError(r, err)
		app.writeJSON(w, r, http.StatusGatewayTimeout,
			failure{OK: false, Error: "the analysis took too long, please try again"})
	case errors.As(err, &upstreamErr):
		app.logServerError(r, err)
		app.writeJSON(w, r, http.StatusBadGateway,
			failure{OK: false, Error: "the analysis service is unavailable, please try again"})
	default:
		app.serverErrorJSON(w, r, err)
	}
}
