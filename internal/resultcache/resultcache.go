// Package resultcache keeps the latest analysis result on the local machine between submitting and viewing it.
package resultcache

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/myrjola/skinwise/internal/errors"
)

// LatestKey is the well-known key of the most recent successful result.
const LatestKey = "skinwise.latest-analysis"

var ErrMiss = errors.NewSentinel("cache miss")

// Entry is a cached analysis result.
type Entry struct {
	// ReportID is set when the server stored the report. It takes precedence over Result.
	ReportID string          `json:"reportId,omitempty"`
	Result   json.RawMessage `json:"result"`
	SavedAt  time.Time       `json:"savedAt"`
}

// Cache stores entries as files in a directory.
type Cache struct {
	dir string
}

// New returns a cache in dir.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Default returns a cache in the user cache directory.
func Default() (*Cache, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, errors.Wrap(err, "user cache dir")
	}
	return New(filepath.Join(dir, "skinwise")), nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Put replaces the entry stored under key. The file is replaced atomically.
func (c *Cache) Put(key string, entry Entry) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return errors.Wrap(err, "create cache dir", slog.String("dir", c.dir))
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "encode entry")
	}
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	_, err = tmp.Write(data)
	if err = errors.Join(err, tmp.Close()); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "write temp file")
	}
	if err = os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "rename temp file")
	}
	return nil
}

// Get reads the entry stored under key. ErrMiss is returned when there is none or it cannot be decoded.
func (c *Cache) Get(key string) (Entry, error) {
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, errors.Wrap(ErrMiss, "read entry", slog.String("key", key))
	}
	if err != nil {
		return Entry{}, errors.Wrap(err, "read entry", slog.String("key", key))
	}
	var entry Entry
	if err = json.Unmarshal(data, &entry); err != nil {
		return Entry{}, errors.Wrap(ErrMiss, "decode entry", slog.String("key", key), slog.String("reason", err.Error()))
	}
	return entry, nil
}

// Delete removes the entry stored under key if any.
func (c *Cache) Delete(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "remove entry", slog.String("key", key))
	}
	return nil
}
