package repositories

import (
	"context"
	"io"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/skinwise/internal/models"
	"github.com/myrjola/skinwise/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	user, err := models.NewUser()
	require.NoError(t, err)

	userWithCredentials, err := models.NewUser()
	require.NoError(t, err)
	userWithCredentials.Credentials = append(userWithCredentials.Credentials, webauthn.Credential{
		ID:              []byte{1, 2, 3},
		PublicKey:       []byte{4, 5, 6},
		AttestationType: "none",
		Transport:       []protocol.AuthenticatorTransport{protocol.Internal, protocol.Hybrid},
		Flags: webauthn.CredentialFlags{
			UserPresent:    true,
			UserVerified:   false,
			BackupEligible: true,
			BackupState:    false,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:       []byte{7, 8, 9},
			SignCount:    3,
			CloneWarning: false,
			Attachment:   protocol.CrossPlatform,
		},
	})

	tests := []struct {
		name string
		user *models.User
	}{
		{
			name: "user without credentials",
			user: user,
		},
		{
			name: "user with credentials",
			user: userWithCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, repo.Upsert(ctx, tt.user), "failed to create user")
			for i := range tt.user.Credentials {
				require.NoError(t, repo.UpsertCredential(ctx, tt.user.ID, &tt.user.Credentials[i]))
			}

			readUser, err := repo.Get(ctx, tt.user.ID)
			require.NoError(t, err, "failed to read user")
			require.Equal(t, tt.user.ID, readUser.ID)
			require.Equal(t, tt.user.DisplayName, readUser.DisplayName)
			require.Equal(t, tt.user.WebAuthnCredentials(), readUser.WebAuthnCredentials())

			exists, err := repo.Exists(ctx, tt.user.ID)
			require.NoError(t, err)
			require.True(t, exists)
		})
	}
}

func TestUserRepository_UpsertCredentialUpdatesSignCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()
	user := newTestUser(t, repo)

	credential := webauthn.Credential{ //nolint:exhaustruct // only relevant fields.
		ID:        []byte{9},
		PublicKey: []byte{1},
		Authenticator: webauthn.Authenticator{ //nolint:exhaustruct // only relevant fields.
			AAGUID:    []byte{0},
			SignCount: 1,
		},
	}
	require.NoError(t, repo.UpsertCredential(ctx, user.ID, &credential))
	credential.Authenticator.SignCount = 2
	require.NoError(t, repo.UpsertCredential(ctx, user.ID, &credential))

	readUser, err := repo.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, readUser.Credentials, 1)
	require.Equal(t, uint32(2), readUser.Credentials[0].Authenticator.SignCount)
	require.Empty(t, readUser.Credentials[0].Transport)
}

func TestUserRepository_missing(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	_, err := repo.Get(ctx, []byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	exists, err := repo.Exists(ctx, []byte("missing"))
	require.NoError(t, err)
	require.False(t, exists)
}
