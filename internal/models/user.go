package models

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/skinwise/internal/errors"
)

const webauthnIDSize = 64

// User is an account identified by a random passkey user handle.
type User struct {
	ID          []byte `db:"id"`
	DisplayName string `db:"display_name"`
	Credentials []webauthn.Credential
}

// NewUser initialises a user with a random ID and an anonymous display name.
func NewUser() (*User, error) {
	id := make([]byte, webauthnIDSize)
	if _, err := rand.Read(id); err != nil {
		return nil, errors.Wrap(err, "generate user id")
	}
	return &User{
		ID:          id,
		DisplayName: fmt.Sprintf("Anonymous user created at %s", time.Now().Format(time.RFC3339)),
		Credentials: []webauthn.Credential{},
	}, nil
}

// WebAuthnID provides the user handle of the user account. A user handle is an opaque byte sequence with a maximum
// size of 64 bytes, and is not meant to be displayed to the user.
//
// WebAuthn §5.4.3: User Account Parameters for Credential Generation
// (https://w3c.github.io/webauthn/#dom-publickeycredentialuserentity-id)
func (u User) WebAuthnID() []byte {
	return u.ID
}

// WebAuthnName provides the name attribute of the user account during registration.
func (u User) WebAuthnName() string {
	return u.DisplayName
}

// WebAuthnDisplayName provides the human-palatable name of the user account, intended only for display.
func (u User) WebAuthnDisplayName() string {
	return u.DisplayName
}

// WebAuthnCredentials provides the list of [webauthn.Credential] owned by the user.
func (u User) WebAuthnCredentials() []webauthn.Credential {
	return u.Credentials
}
