package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/myrjola/skinwise/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := logging.WithAttrs(context.Background(), slog.String("request_id", "r1"))
	ctx = logging.WithAttrs(ctx, slog.String("user_id", "u1"))
	logger.With(slog.String("component", "test")).InfoContext(ctx, "hello")

	out := buf.String()
	require.Contains(t, out, "request_id=r1")
	require.Contains(t, out, "user_id=u1")
	require.Contains(t, out, "component=test")
}

func TestWithAttrs_siblingsDoNotLeak(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	parent := logging.WithAttrs(context.Background(), slog.String("a", "1"))
	left := logging.WithAttrs(parent, slog.String("left", "x"))
	_ = logging.WithAttrs(parent, slog.String("right", "y"))

	logger.InfoContext(left, "left")
	require.Contains(t, buf.String(), "left=x")
	require.NotContains(t, buf.String(), "right=y")
}
