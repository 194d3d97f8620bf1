package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/skinwise/internal/contexthelpers"
	"github.com/myrjola/skinwise/internal/errors"
)

func (app *application) beginRegistration(w http.ResponseWriter, r *http.Request) {
	out, err := app.passkeys.BeginRegistration(r.Context())
	if err != nil {
		app.serverErrorJSON(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

func (app *application) finishRegistration(w http.ResponseWriter, r *http.Request) {
	if err := app.passkeys.FinishRegistration(r); err != nil {
		app.serverErrorJSON(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

func (app *application) beginLogin(w http.ResponseWriter, r *http.Request) {
	out, err := app.passkeys.BeginLogin(r.Context())
	if err != nil {
		app.serverErrorJSON(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

func (app *application) finishLogin(w http.ResponseWriter, r *http.Request) {
	if err := app.passkeys.FinishLogin(r); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "passkey login failed", errors.SlogError(err))
		app.clientError(w, r, http.StatusUnauthorized, "passkey login failed")
		return
	}
	app.writeJSON(w, r, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.passkeys.Logout(r.Context()); err != nil {
		app.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type tokenResponse struct {
	OK        bool      `json:"ok"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// issueToken mints a bearer token for the logged-in user so that the command line client can act on their behalf.
func (app *application) issueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if contexthelpers.AuthenticationMethod(ctx) != contexthelpers.AuthMethodSession {
		app.clientError(w, r, http.StatusUnauthorized, "sign in with a passkey first")
		return
	}
	token, expiresAt, err := app.tokens.Issue(contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		app.serverErrorJSON(w, r, errors.Wrap(err, "issue token"))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	app.writeJSON(w, r, http.StatusOK, tokenResponse{OK: true, Token: token, ExpiresAt: expiresAt})
}
