package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/skinwise/internal/errors"
)

// healthy reports whether the server can reach its database.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := app.db.ReadOnly.PingContext(r.Context()); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "database unreachable", errors.SlogError(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
