// Package blobstore keeps uploaded images on local disk for the duration of a single request.
package blobstore

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/myrjola/skinwise/internal/errors"
)

var ErrTooLarge = errors.NewSentinel("blob exceeds size limit")

// Blob is an uploaded file stored in a scope.
type Blob struct {
	Name        string
	ContentType string
	Path        string
	Size        int64
}

// Store creates scopes under a root directory.
type Store struct {
	dir string
}

// New returns a store rooted at dir. An empty dir uses the system temporary directory.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Scope is a private directory whose files are removed together by Close.
type Scope struct {
	mu     sync.Mutex
	dir    string
	blobs  []Blob
	closed bool
}

// NewScope creates a new scope directory.
func (s *Store) NewScope() (*Scope, error) {
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o700); err != nil {
			return nil, errors.Wrap(err, "create blob root", slog.String("dir", s.dir))
		}
	}
	dir, err := os.MkdirTemp(s.dir, "skinwise-upload-")
	if err != nil {
		return nil, errors.Wrap(err, "create scope dir")
	}
	return &Scope{dir: dir}, nil //nolint:exhaustruct // blobs are added by Put.
}

// Put copies at most maxBytes from r into the scope. ErrTooLarge is returned when r holds more.
func (s *Scope) Put(name, contentType string, r io.Reader, maxBytes int64) (Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Blob{}, errors.New("scope closed")
	}

	f, err := os.CreateTemp(s.dir, "blob-*"+filepath.Ext(sanitize(name)))
	if err != nil {
		return Blob{}, errors.Wrap(err, "create blob file")
	}
	n, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	closeErr := f.Close()
	if err = errors.Join(err, closeErr); err != nil {
		return Blob{}, errors.Wrap(err, "write blob", slog.String("name", name))
	}
	if n > maxBytes {
		_ = os.Remove(f.Name())
		return Blob{}, errors.Wrap(ErrTooLarge, "write blob",
			slog.String("name", name), slog.Int64("max_bytes", maxBytes))
	}

	blob := Blob{Name: name, ContentType: contentType, Path: f.Name(), Size: n}
	s.blobs = append(s.blobs, blob)
	return blob, nil
}

// Blobs returns the blobs stored so far in insertion order.
func (s *Scope) Blobs() []Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Blob(nil), s.blobs...)
}

// Close removes the scope directory and everything in it. It is safe to call more than once.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.blobs = nil
	if err := os.RemoveAll(s.dir); err != nil {
		return errors.Wrap(err, "remove scope dir", slog.String("dir", s.dir))
	}
	return nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
}
