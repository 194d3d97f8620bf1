package blobstore_test

import (
	"os"
	"strings"
	"testing"

	"github.com/myrjola/skinwise/internal/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope(t *testing.T) {
	store := blobstore.New(t.TempDir())
	scope, err := store.NewScope()
	require.NoError(t, err)

	front, err := scope.Put("front-face.jpg", "image/jpeg", strings.NewReader("front"), 10)
	require.NoError(t, err)
	_, err = scope.Put("../../left-face.jpg", "image/jpeg", strings.NewReader("left"), 10)
	require.NoError(t, err)

	assert.Equal(t, int64(5), front.Size)
	data, err := os.ReadFile(front.Path)
	require.NoError(t, err)
	assert.Equal(t, "front", string(data))

	blobs := scope.Blobs()
	require.Len(t, blobs, 2)
	assert.Equal(t, "front-face.jpg", blobs[0].Name)

	require.NoError(t, scope.Close())
	for _, b := range blobs {
		_, err = os.Stat(b.Path)
		require.ErrorIs(t, err, os.ErrNotExist)
	}
	require.NoError(t, scope.Close())
	_, err = scope.Put("late.jpg", "image/jpeg", strings.NewReader("x"), 10)
	require.Error(t, err)
}

func TestScope_PutRejectsOversizedBlob(t *testing.T) {
	scope, err := blobstore.New(t.TempDir()).NewScope()
	require.NoError(t, err)
	t.Cleanup(func() { _ = scope.Close() })

	_, err = scope.Put("big.jpg", "image/jpeg", strings.NewReader("0123456789"), 9)
	require.ErrorIs(t, err, blobstore.ErrTooLarge)
	assert.Empty(t, scope.Blobs())

	_, err = scope.Put("exact.jpg", "image/jpeg", strings.NewReader("0123456789"), 10)
	require.NoError(t, err)
}
