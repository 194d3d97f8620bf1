package main

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/myrjola/skinwise/internal/contexthelpers"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/models"
	"github.com/myrjola/skinwise/internal/routine"
)

const (
	homeHistoryLimit = 20
	summaryMaxRunes  = 120
	summaryEllipsis  = "…"
)

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{baseTemplateData: newBaseTemplateData(r), Reports: nil}
	if userID := contexthelpers.AuthenticatedUserID(r.Context()); userID != nil {
		reports, err := app.reports.History(r.Context(), userID, homeHistoryLimit)
		if err != nil {
			app.serverError(w, r, errors.Wrap(err, "read history"))
			return
		}
		for _, report := range reports {
			data.Reports = append(data.Reports, summarize(report))
		}
	}
	app.render(w, r, http.StatusOK, "home", data)
}

func summarize(report models.Report) reportSummary {
	var decoded any
	summary := ""
	if err := json.Unmarshal(report.Data, &decoded); err == nil {
		summary = routine.NormalizeValue(decoded).Analysis
	}
	if utf8.RuneCountInString(summary) > summaryMaxRunes {
		summary = string([]rune(summary)[:summaryMaxRunes]) + summaryEllipsis
	}
	return reportSummary{ID: report.ID, CreatedAt: report.CreatedAt, Summary: summary}
}
