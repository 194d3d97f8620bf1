package errors_test

import (
	"log/slog"
	"slices"
	"testing"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestAnnotatedError(t *testing.T) {
	err := errors.New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	var annotated *errors.AnnotatedError
	require.True(t, errors.As(err, &annotated))

	// Ensure log values are coming through.
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source.
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.NotEqual(t, -1, sourceIdx)
	require.Contains(t, group[sourceIdx].Value.String(), "annotatederror_test.go")
}

func TestWrap(t *testing.T) {
	sentinel := errors.NewSentinel("sentinel")
	require.NotErrorIs(t, errors.New("sentinel"), sentinel)

	wrapped := errors.Wrap(sentinel, "read report", slog.String("report_id", "abc"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "read report: sentinel", wrapped.Error())

	twice := errors.Wrap(wrapped, "handle request", slog.String("uri", "/api/reports"))
	require.ErrorIs(t, twice, sentinel)

	var annotated *errors.AnnotatedError
	require.True(t, errors.As(twice, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("report_id", "abc"))
	require.Contains(t, group, slog.String("uri", "/api/reports"))

	require.NoError(t, errors.Wrap(nil, "nothing to wrap"))
}

func TestSlogError(t *testing.T) {
	attr := errors.SlogError(errors.NewSentinel("plain"))
	require.Equal(t, "error", attr.Key)
	require.Equal(t, "plain", attr.Value.String())

	attr = errors.SlogError(errors.Wrap(errors.NewSentinel("cause"), "outer"))
	require.Equal(t, "error", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
}
