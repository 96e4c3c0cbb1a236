// Package blob stores todo images as objects under a filesystem root.
// The filesystem is abstracted behind afero so tests run on an in-memory fs.
package blob

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Entry describes one stored object.
type Entry struct {
	Path string
	Size int64
}

// Store is an object store over an afero filesystem. Object paths are
// slash-separated and relative to the store root.
type Store struct {
	fs      afero.Fs
	baseURL string
}

// New creates a Store over the given filesystem. baseURL, when non-empty,
// prefixes object paths in PublicURL.
func New(fs afero.Fs, baseURL string) *Store {
	return &Store{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

// NewOnDisk creates a Store rooted at dir on the OS filesystem.
func NewOnDisk(dir, baseURL string) *Store {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL)
}

// Upload writes an object at the given path, creating parent directories
// and replacing any existing object.
func (s *Store) Upload(ctx context.Context, objPath string, r io.Reader) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if dir := path.Dir(objPath); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return Entry{}, errors.Wrapf(err, "creating blob dir %s", dir)
		}
	}
	f, err := s.fs.Create(objPath)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "creating blob %s", objPath)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Entry{}, errors.Wrapf(err, "writing blob %s", objPath)
	}
	return Entry{Path: objPath, Size: n}, nil
}

// PublicURL returns the externally visible URL for an object path.
func (s *Store) PublicURL(objPath string) string {
	if s.baseURL == "" {
		return objPath
	}
	return s.baseURL + "/" + strings.TrimLeft(objPath, "/")
}

// List returns entries whose path starts with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []Entry
	err := afero.Walk(s.fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		p = strings.TrimPrefix(p, "./")
		if strings.HasPrefix(p, prefix) {
			entries = append(entries, Entry{Path: p, Size: info.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing blobs under %s", prefix)
	}
	return entries, nil
}

// Remove deletes the given objects. Removing an already-absent object is
// not an error, so repeated deletions stay idempotent.
func (s *Store) Remove(ctx context.Context, objPaths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range objPaths {
		if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing blob %s", p)
		}
	}
	return nil
}

// Exists reports whether an object is present.
func (s *Store) Exists(ctx context.Context, objPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.fs, objPath)
	if err != nil {
		return false, errors.Wrapf(err, "checking blob %s", objPath)
	}
	return ok, nil
}
