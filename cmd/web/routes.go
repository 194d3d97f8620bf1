package main

import (
	"net/http"

	"github.com/justinas/alice"
	"github.com/myrjola/skinwise/ui"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", cacheForeverHeaders(http.FileServerFS(ui.Files)))
	mux.HandleFunc("GET /api/healthy", app.healthy)

	session := alice.New(app.sessionManager.LoadAndSave, app.authenticator.Middleware)
	// Browser routes are protected from cross-site requests.
	page := session.Append(app.noSurf, commonContext)
	short := page.Append(pageTimeout(defaultTimeout))
	shortAPI := page.Append(apiTimeout(defaultTimeout))
	// The JSON API also serves bearer token callers that have no CSRF token.
	api := session.Append(apiTimeout(defaultTimeout))
	analysisAPI := session.Append(apiTimeout(app.longTimeout()))

	mux.Handle("GET /{$}", short.ThenFunc(app.home))
	mux.Handle("GET /reports/latest", short.ThenFunc(app.latestReportPage))
	mux.Handle("GET /reports/{id}", short.ThenFunc(app.reportPage))

	mux.Handle("POST /api/registration/start", shortAPI.ThenFunc(app.beginRegistration))
	mux.Handle("POST /api/registration/finish", shortAPI.ThenFunc(app.finishRegistration))
	mux.Handle("POST /api/login/start", shortAPI.ThenFunc(app.beginLogin))
	mux.Handle("POST /api/login/finish", shortAPI.ThenFunc(app.finishLogin))
	mux.Handle("POST /api/logout", short.ThenFunc(app.logout))
	mux.Handle("POST /api/token", shortAPI.ThenFunc(app.issueToken))

	mux.Handle("GET /api/wizard", shortAPI.ThenFunc(app.getWizard))
	mux.Handle("PATCH /api/wizard", shortAPI.ThenFunc(app.patchWizard))
	mux.Handle("POST /api/wizard/concerns", shortAPI.ThenFunc(app.toggleConcern))
	mux.Handle("POST /api/wizard/images/{position}", shortAPI.ThenFunc(app.uploadImage))
	mux.Handle("DELETE /api/wizard/images/{position}", shortAPI.ThenFunc(app.clearImage))
	mux.Handle("POST /api/wizard/next", shortAPI.ThenFunc(app.nextStep))
	mux.Handle("POST /api/wizard/back", shortAPI.ThenFunc(app.previousStep))
	mux.Handle("POST /api/wizard/reset", shortAPI.ThenFunc(app.resetWizard))
	mux.Handle("POST /api/wizard/submit", page.Append(apiTimeout(app.longTimeout())).ThenFunc(app.submitWizard))
	mux.Handle("GET /api/wizard/result", shortAPI.ThenFunc(app.wizardResult))

	mux.Handle("POST /api/analysis", analysisAPI.ThenFunc(app.apiAnalysis))
	mux.Handle("GET /api/reports", api.Append(app.requireAuthentication).ThenFunc(app.apiReports))
	mux.Handle("GET /api/reports/{id}", api.Append(app.requireAuthentication).ThenFunc(app.apiReport))

	mux.Handle("/", short.ThenFunc(app.notFound))

	return app.recoverPanic(app.logRequest(app.secureHeaders(mux)))
}
