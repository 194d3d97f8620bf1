package identity_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/skinwise/internal/contexthelpers"
	"github.com/myrjola/skinwise/internal/identity"
	"github.com/myrjola/skinwise/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	tokens := identity.NewTokens([]byte("secret"), time.Hour)
	userID := []byte{0x00, 0xff, 0x10, 0x20}

	token, expiresAt, err := tokens.Issue(userID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	got, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong secret", token: mustIssue(t, identity.NewTokens([]byte("other"), time.Hour), userID)},
		{name: "expired", token: mustIssue(t, identity.NewTokens([]byte("secret"), -time.Minute), userID)},
		{name: "tampered", token: token + "x"},
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err = tokens.Verify(tt.token)
			require.ErrorIs(t, err, identity.ErrInvalidToken)
		})
	}
}

func mustIssue(t *testing.T, tokens *identity.Tokens, userID []byte) string {
	t.Helper()
	token, _, err := tokens.Issue(userID)
	require.NoError(t, err)
	return token
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "header", header: "Bearer abc", want: "abc"},
		{name: "case insensitive scheme", header: "bearer abc", want: "abc"},
		{name: "cookie", cookie: "def", want: "def"},
		{name: "header wins", header: "Bearer abc", cookie: "def", want: "abc"},
		{name: "other scheme", header: "Basic abc", want: ""},
		{name: "nothing", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: identity.TokenCookieName, Value: tt.cookie}) //nolint:exhaustruct // test.
			}
			assert.Equal(t, tt.want, identity.BearerToken(r))
		})
	}
}

type fakeUsers map[string]bool

func (f fakeUsers) Exists(_ context.Context, id []byte) (bool, error) {
	return f[string(id)], nil
}

func TestAuthenticator_Middleware(t *testing.T) {
	sessionManager := scs.New()
	tokens := identity.NewTokens([]byte("secret"), time.Hour)
	users := fakeUsers{"alice": true}
	auth := identity.NewAuthenticator(sessionManager, tokens, users, testhelpers.NewLogger(io.Discard))

	mux := http.NewServeMux()
	mux.HandleFunc("/login/{user}", func(_ http.ResponseWriter, r *http.Request) {
		sessionManager.Put(r.Context(), identity.SessionUserIDKey, []byte(r.PathValue("user")))
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !contexthelpers.IsAuthenticated(ctx) {
			_, _ = io.WriteString(w, "anonymous")
			return
		}
		_, _ = io.WriteString(w, string(contexthelpers.AuthenticatedUserID(ctx))+" via "+
			string(contexthelpers.AuthenticationMethod(ctx)))
	})
	srv := httptest.NewServer(sessionManager.LoadAndSave(auth.Middleware(mux)))
	t.Cleanup(srv.Close)

	whoami := func(t *testing.T, client *http.Client, header string) string {
		t.Helper()
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/whoami", nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	t.Run("anonymous", func(t *testing.T) {
		assert.Equal(t, "anonymous", whoami(t, srv.Client(), ""))
	})

	t.Run("bearer", func(t *testing.T) {
		assert.Equal(t, "alice via bearer", whoami(t, srv.Client(), "Bearer "+mustIssue(t, tokens, []byte("alice"))))
	})

	t.Run("bearer for deleted user", func(t *testing.T) {
		assert.Equal(t, "anonymous", whoami(t, srv.Client(), "Bearer "+mustIssue(t, tokens, []byte("bob"))))
	})

	t.Run("invalid bearer", func(t *testing.T) {
		assert.Equal(t, "anonymous", whoami(t, srv.Client(), "Bearer nope"))
	})

	t.Run("session wins over bearer", func(t *testing.T) {
		jar, err := cookiejar.New(nil)
		require.NoError(t, err)
		client := &http.Client{Jar: jar} //nolint:exhaustruct // test client.
		resp, err := client.Get(srv.URL + "/login/alice")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, "alice via session", whoami(t, client, "Bearer nope"))
	})
}
