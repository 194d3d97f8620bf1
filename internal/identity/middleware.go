package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/skinwise/internal/contexthelpers"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/logging"
)

// SessionUserIDKey is the session key holding the id of the logged-in user.
const SessionUserIDKey = "userID"

// TokenCookieName is the cookie that may carry a bearer token instead of the Authorization header.
const TokenCookieName = "skinwise_token"

// UserChecker reports whether a user still exists.
type UserChecker interface {
	Exists(ctx context.Context, id []byte) (bool, error)
}

type Authenticator struct {
	sessionManager *scs.SessionManager
	tokens         *Tokens
	users          UserChecker
	logger         *slog.Logger
}

func NewAuthenticator(
	sessionManager *scs.SessionManager,
	tokens *Tokens,
	users UserChecker,
	logger *slog.Logger,
) *Authenticator {
	return &Authenticator{
		sessionManager: sessionManager,
		tokens:         tokens,
		users:          users,
		logger:         logger,
	}
}

// BearerToken returns the token from the Authorization header or, failing that, from the token cookie.
func BearerToken(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Middleware marks the request context as authenticated when the session or a bearer token resolves to an existing
// user. Unauthenticated requests pass through unchanged. The session must already be loaded.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, method := a.sessionManager.GetBytes(ctx, SessionUserIDKey), contexthelpers.AuthMethodSession
		if userID == nil {
			if token := BearerToken(r); token != "" {
				var err error
				if userID, err = a.tokens.Verify(token); err != nil {
					a.logger.LogAttrs(ctx, slog.LevelDebug, "ignoring bearer token", errors.SlogError(err))
				}
				method = contexthelpers.AuthMethodBearer
			}
		}

		// Hash token with sha256 to avoid leaking it in logs.
		if token := a.sessionManager.Token(ctx); token != "" {
			tokenHash := sha256.Sum256([]byte(token))
			ctx = logging.WithAttrs(ctx, slog.String("session_hash", hex.EncodeToString(tokenHash[:])))
			r = r.WithContext(ctx)
		}

		if userID == nil {
			next.ServeHTTP(w, r)
			return
		}

		exists, err := a.users.Exists(ctx, userID)
		if err != nil {
			a.logger.LogAttrs(ctx, slog.LevelError, "server error",
				slog.String("method", r.Method), slog.String("uri", r.URL.RequestURI()), errors.SlogError(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if exists {
			r = contexthelpers.AuthenticateContext(r, userID, method)
			r = r.WithContext(logging.WithAttrs(r.Context(),
				slog.String("user_id", hex.EncodeToString(userID)),
				slog.String("auth_method", string(method)),
			))
		}

		next.ServeHTTP(w, r)
	})
}
