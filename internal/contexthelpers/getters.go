package contexthelpers

import (
	"context"
)

func IsAuthenticated(ctx context.Context) bool {
	isAuthenticated, ok := ctx.Value(isAuthenticatedContextKey).(bool)
	if !ok {
		return false
	}

	return isAuthenticated
}

// AuthenticatedUserID returns the user id resolved by the authentication middleware or nil for anonymous callers.
func AuthenticatedUserID(ctx context.Context) []byte {
	userID, ok := ctx.Value(authenticatedUserIDContextKey).([]byte)
	if !ok {
		return nil
	}

	return userID
}

func AuthenticationMethod(ctx context.Context) AuthMethod {
	method, ok := ctx.Value(authMethodContextKey).(AuthMethod)
	if !ok {
		return AuthMethodNone
	}

	return method
}

func CSRFToken(ctx context.Context) string {
	csrfToken, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok {
		return ""
	}

	return csrfToken
}

func CSPNonce(ctx context.Context) string {
	nonce, ok := ctx.Value(cspNonceContextKey).(string)
	if !ok {
		return ""
	}

	return nonce
}
