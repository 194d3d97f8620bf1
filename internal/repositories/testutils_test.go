package repositories

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/skinwise/internal/models"
	"github.com/myrjola/skinwise/internal/sqlite"
	"github.com/myrjola/skinwise/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	db, err := sqlite.NewDatabase(context.Background(), ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

// newTestUser persists a fresh user.
func newTestUser(t *testing.T, repo *UserRepository) *models.User {
	t.Helper()
	user, err := models.NewUser()
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(context.Background(), user))
	return user
}
