package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/skinwise/internal/errors"
)

// failure is the JSON body of every unsuccessful API response.
type failure struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logServerError(r, err)
	app.renderError(w, r, http.StatusInternalServerError, "Something went wrong",
		"We could not complete your request. Please try again in a moment.")
}

func (app *application) serverErrorJSON(w http.ResponseWriter, r *http.Request, err error) {
	app.logServerError(r, err)
	app.writeJSON(w, r, http.StatusInternalServerError,
		failure{OK: false, Error: http.StatusText(http.StatusInternalServerError)})
}

func (app *application) logServerError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, message string) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri), slog.String("message", message))
	app.writeJSON(w, r, status, failure{OK: false, Error: message})
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.renderError(w, r, http.StatusNotFound, "Not found",
		"The page you are looking for does not exist or belongs to someone else.")
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.logServerError(r, errors.Wrap(err, "encode JSON response"))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
