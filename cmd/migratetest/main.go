package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/sqlite"
	"github.com/myrjola/skinwise/internal/testhelpers"
)

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("SKINWISE_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "SKINWISE_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// Counting users and reports of a production copy verifies that the schema sync kept the data.
	var users, reports int
	if err = db.ReadOnly.GetContext(ctx, &users, `SELECT COUNT(*) FROM users`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching user count", errors.SlogError(err))
		os.Exit(1)
	}
	if users == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no users found, something is likely wrong")
		os.Exit(1)
	}
	if err = db.ReadOnly.GetContext(ctx, &reports, `SELECT COUNT(*) FROM reports`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error fetching report count", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "row counts", slog.Int("users", users), slog.Int("reports", reports))

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
