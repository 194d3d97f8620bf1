package repositories

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/myrjola/skinwise/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestReportRepository(t *testing.T) {
	db := newTestDB(t)
	logger := testhelpers.NewLogger(io.Discard)
	users := NewUserRepository(db, logger)
	reports := NewReportRepository(db, logger)
	ctx := context.Background()

	owner := newTestUser(t, users)
	stranger := newTestUser(t, users)

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reports.now = func() time.Time { return clock }

	firstID, err := reports.Create(ctx, owner.ID, json.RawMessage(`{"analysis":"first"}`))
	require.NoError(t, err)
	// Same timestamp, insertion order breaks the tie.
	secondID, err := reports.Create(ctx, owner.ID, json.RawMessage(`{"analysis":"second"}`))
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	thirdID, err := reports.Create(ctx, owner.ID, json.RawMessage(`{"analysis":"third"}`))
	require.NoError(t, err)

	t.Run("get owned report", func(t *testing.T) {
		report, err := reports.Get(ctx, firstID, owner.ID)
		require.NoError(t, err)
		require.Equal(t, firstID, report.ID)
		require.JSONEq(t, `{"analysis":"first"}`, string(report.Data))
		require.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), report.CreatedAt)
	})

	t.Run("reports of others are not found", func(t *testing.T) {
		_, err := reports.Get(ctx, firstID, stranger.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("history is most recent first", func(t *testing.T) {
		history, err := reports.History(ctx, owner.ID, 0)
		require.NoError(t, err)
		ids := make([]string, 0, len(history))
		for _, report := range history {
			ids = append(ids, report.ID)
		}
		require.Equal(t, []string{thirdID, secondID, firstID}, ids)
	})

	t.Run("history honours limit", func(t *testing.T) {
		history, err := reports.History(ctx, owner.ID, 1)
		require.NoError(t, err)
		require.Len(t, history, 1)
		require.Equal(t, thirdID, history[0].ID)
	})

	t.Run("empty history", func(t *testing.T) {
		history, err := reports.History(ctx, stranger.ID, 10)
		require.NoError(t, err)
		require.Empty(t, history)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := reports.Create(ctx, owner.ID, json.RawMessage(`{"broken"`))
		require.Error(t, err)
	})
}
