// Package identity resolves the user behind a request from the session or from a bearer token.
package identity

import (
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/myrjola/skinwise/internal/errors"
)

var ErrInvalidToken = errors.NewSentinel("invalid bearer token")

const issuer = "skinwise"

// Tokens issues and verifies HS256 signed bearer tokens whose subject is the user id.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token for userID and returns it with its expiry time.
func (t *Tokens) Issue(userID []byte) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{ //nolint:exhaustruct // no audience or id.
		Issuer:    issuer,
		Subject:   base64.RawURLEncoding.EncodeToString(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, issuer and validity window of token and returns the user id it was issued for.
func (t *Tokens) Verify(token string) ([]byte, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, "parse token", slog.String("reason", err.Error()))
	}
	userID, err := base64.RawURLEncoding.DecodeString(claims.Subject)
	if err != nil || len(userID) == 0 {
		return nil, errors.Wrap(ErrInvalidToken, "decode subject")
	}
	return userID, nil
}
