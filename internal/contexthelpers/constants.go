package contexthelpers

type contextKey string

const (
	isAuthenticatedContextKey     = contextKey("isAuthenticated")
	authenticatedUserIDContextKey = contextKey("authenticatedUserID")
	authMethodContextKey          = contextKey("authMethod")
	csrfTokenContextKey           = contextKey("csrfToken")
	cspNonceContextKey            = contextKey("cspNonce")
)

// AuthMethod tells how the caller identity was resolved.
type AuthMethod string

const (
	AuthMethodNone    AuthMethod = ""
	AuthMethodSession AuthMethod = "session"
	AuthMethodBearer  AuthMethod = "bearer"
)
