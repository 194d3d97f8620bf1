// Package passkey implements passwordless registration and discoverable login with WebAuthn.
package passkey

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/identity"
	"github.com/myrjola/skinwise/internal/models"
	"github.com/myrjola/skinwise/internal/repositories"
)

func init() {
	gob.Register(webauthn.SessionData{}) //nolint:exhaustruct // type registration.
}

const webAuthnSessionKey = "webauthn"

type Handler struct {
	logger         *slog.Logger
	webAuthn       *webauthn.WebAuthn
	sessionManager *scs.SessionManager
	users          *repositories.UserRepository
}

func New(
	fqdn string,
	rpOrigins []string,
	logger *slog.Logger,
	sessionManager *scs.SessionManager,
	users *repositories.UserRepository,
) (*Handler, error) {
	webAuthn, err := webauthn.New(&webauthn.Config{ //nolint:exhaustruct // defaults are fine.
		RPDisplayName: "Skinwise",
		RPID:          fqdn,
		RPOrigins:     rpOrigins,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new webauthn")
	}

	return &Handler{
		logger:         logger,
		webAuthn:       webAuthn,
		sessionManager: sessionManager,
		users:          users,
	}, nil
}

// BeginRegistration creates an anonymous user and returns the JSON encoded credential creation options.
func (h *Handler) BeginRegistration(ctx context.Context) ([]byte, error) {
	user, err := models.NewUser()
	if err != nil {
		return nil, errors.Wrap(err, "new user")
	}

	authSelect := protocol.AuthenticatorSelection{ //nolint:exhaustruct // platform or roaming both work.
		RequireResidentKey: protocol.ResidentKeyNotRequired(),
		UserVerification:   protocol.VerificationDiscouraged,
	}
	opts, session, err := h.webAuthn.BeginRegistration(
		user,
		webauthn.WithAuthenticatorSelection(authSelect),
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired))
	if err != nil {
		return nil, errors.Wrap(err, "begin registration")
	}

	h.sessionManager.Put(ctx, webAuthnSessionKey, *session)
	if err = h.users.Upsert(ctx, user); err != nil {
		return nil, errors.Wrap(err, "upsert user")
	}

	var out []byte
	if out, err = json.Marshal(opts); err != nil {
		return nil, errors.Wrap(err, "JSON encode")
	}
	return out, nil
}

func (h *Handler) popWebAuthnSession(ctx context.Context) (webauthn.SessionData, error) {
	session, ok := h.sessionManager.Pop(ctx, webAuthnSessionKey).(webauthn.SessionData)
	if !ok {
		return session, errors.New("could not parse webauthn.SessionData")
	}
	return session, nil
}

// FinishRegistration stores the new credential and logs the user in.
func (h *Handler) FinishRegistration(r *http.Request) error {
	ctx := r.Context()
	session, err := h.popWebAuthnSession(ctx)
	if err != nil {
		return errors.Wrap(err, "parse webauthn session")
	}

	var user *models.User
	if user, err = h.users.Get(ctx, session.UserID); err != nil {
		return errors.Wrap(err, "get user")
	}

	var credential *webauthn.Credential
	if credential, err = h.webAuthn.FinishRegistration(user, session, r); err != nil {
		return errors.Wrap(err, "finish webauthn registration")
	}
	if err = h.users.UpsertCredential(ctx, user.ID, credential); err != nil {
		return errors.Wrap(err, "upsert webauthn credential")
	}

	return h.login(ctx, user.ID)
}

// BeginLogin returns the JSON encoded assertion options of a discoverable login.
func (h *Handler) BeginLogin(ctx context.Context) ([]byte, error) {
	options, session, err := h.webAuthn.BeginDiscoverableLogin()
	if err != nil {
		return nil, errors.Wrap(err, "begin discoverable webauthn login")
	}
	h.sessionManager.Put(ctx, webAuthnSessionKey, *session)

	var out []byte
	if out, err = json.Marshal(options); err != nil {
		return nil, errors.Wrap(err, "json marshal webauthn options")
	}
	return out, nil
}

// FinishLogin validates the assertion, updates the credential sign count and logs the user in.
func (h *Handler) FinishLogin(r *http.Request) error {
	ctx := r.Context()
	session, err := h.popWebAuthnSession(ctx)
	if err != nil {
		return errors.Wrap(err, "parse webauthn session")
	}

	parsedResponse, err := protocol.ParseCredentialRequestResponse(r)
	if err != nil {
		return errors.Wrap(err, "parse credential request response")
	}
	findUser := func(_, userHandle []byte) (webauthn.User, error) {
		return h.users.Get(ctx, userHandle)
	}
	user, credential, err := h.webAuthn.ValidatePasskeyLogin(findUser, session, parsedResponse)
	if err != nil {
		return errors.Wrap(err, "validate passkey login")
	}
	if err = h.users.UpsertCredential(ctx, user.WebAuthnID(), credential); err != nil {
		return errors.Wrap(err, "upsert webauthn credential")
	}

	return h.login(ctx, user.WebAuthnID())
}

func (h *Handler) login(ctx context.Context, userID []byte) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "renew session token")
	}
	h.sessionManager.Put(ctx, identity.SessionUserIDKey, userID)
	return nil
}

// Logout forgets the logged-in user but keeps the rest of the session.
func (h *Handler) Logout(ctx context.Context) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "renew session token")
	}
	h.sessionManager.Remove(ctx, identity.SessionUserIDKey)
	return nil
}
