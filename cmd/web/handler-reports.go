package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/skinwise/internal/contexthelpers"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/models"
	"github.com/myrjola/skinwise/internal/repositories"
	"github.com/myrjola/skinwise/internal/routine"
)

type reportsResponse struct {
	OK    bool            `json:"ok"`
	Items []models.Report `json:"items"`
}

type reportResponse struct {
	OK     bool          `json:"ok"`
	Report models.Report `json:"report"`
}

// apiReports lists the caller's reports newest first.
func (app *application) apiReports(w http.ResponseWriter, r *http.Request) {
	limit := repositories.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			app.clientError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, repositories.DefaultHistoryLimit)
	}

	reports, err := app.reports.History(r.Context(), contexthelpers.AuthenticatedUserID(r.Context()), limit)
	if err != nil {
		app.serverErrorJSON(w, r, errors.Wrap(err, "read history"))
		return
	}
	app.writeJSON(w, r, http.StatusOK, reportsResponse{OK: true, Items: reports})
}

func (app *application) apiReport(w http.ResponseWriter, r *http.Request) {
	report, err := app.reports.Get(r.Context(), r.PathValue("id"), contexthelpers.AuthenticatedUserID(r.Context()))
	if errors.Is(err, repositories.ErrNotFound) {
		app.clientError(w, r, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		app.serverErrorJSON(w, r, errors.Wrap(err, "read report"))
		return
	}
	app.writeJSON(w, r, http.StatusOK, reportResponse{OK: true, Report: *report})
}

// reportPage renders a stored report of the logged-in user.
func (app *application) reportPage(w http.ResponseWriter, r *http.Request) {
	userID := contexthelpers.AuthenticatedUserID(r.Context())
	if userID == nil {
		app.renderError(w, r, http.StatusUnauthorized, "Sign in to see this report",
			"Stored reports are only available after signing in with your passkey.")
		return
	}
	report, err := app.reports.Get(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, repositories.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "read report"))
		return
	}
	app.renderReport(w, r, report.ID, report.CreatedAt, report.Data)
}

// latestReportPage renders the newest stored report, or the last wizard result of an anonymous session.
func (app *application) latestReportPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if userID := contexthelpers.AuthenticatedUserID(ctx); userID != nil {
		reports, err := app.reports.History(ctx, userID, 1)
		if err != nil {
			app.serverError(w, r, errors.Wrap(err, "read history"))
			return
		}
		if len(reports) > 0 {
			app.renderReport(w, r, reports[0].ID, reports[0].CreatedAt, reports[0].Data)
			return
		}
	}

	result, ok := app.sessionResult(ctx)
	if !ok {
		app.renderError(w, r, http.StatusNotFound, "No analysis yet",
			"There is no analysis to show. Complete the questionnaire to get your routine.")
		return
	}
	app.renderReport(w, r, result.ID, time.Time{}, result.Result)
}

func (app *application) renderReport(
	w http.ResponseWriter,
	r *http.Request,
	id string,
	createdAt time.Time,
	data json.RawMessage,
) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		app.serverError(w, r, errors.Wrap(err, "decode stored report"))
		return
	}
	app.render(w, r, http.StatusOK, "report", reportTemplateData{
		baseTemplateData: newBaseTemplateData(r),
		ID:               id,
		CreatedAt:        createdAt,
		Report:           routine.NormalizeValue(decoded),
	})
}
