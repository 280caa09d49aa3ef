// Package blobstore keeps photo, scan and report binaries in a
// content-addressed tree: every blob is stored once under the hex SHA-256
// of its bytes.
package blobstore

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/lewtec/vistoria/internal/domain"
)

// Store is a content-addressed blob store on a billy filesystem.
type Store struct {
	fs billy.Filesystem
}

// New creates a store on fs.
func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// NewOS creates a store rooted at a directory of the host.
func NewOS(root string) *Store {
	return New(osfs.New(root))
}

// NewMemory creates a store that lives in memory.
func NewMemory() *Store {
	return New(memfs.New())
}

// Key returns the key data is stored under.
func Key(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// HashReader returns the key of everything read from r.
func HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

func (s *Store) path(key string) string {
	if len(key) < 2 {
		return key
	}
	return path.Join(key[:2], key)
}

func validKey(key string) bool {
	if len(key) != sha256.Size*2 {
		return false
	}
	for _, c := range key {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Put stores data and returns its key. Storing the same bytes twice is a
// no-op.
func (s *Store) Put(data []byte) (string, error) {
	key := Key(data)
	target := s.path(key)
	if _, err := s.fs.Stat(target); err == nil {
		return key, nil
	}
	if err := s.fs.MkdirAll(key[:2], 0o755); err != nil {
		return "", fmt.Errorf("while creating blob dir: %w", err)
	}
	f, err := s.fs.TempFile(key[:2], "tmp-")
	if err != nil {
		return "", fmt.Errorf("while creating temp blob: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(tmp)
		return "", fmt.Errorf("while writing blob: %w", err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmp)
		return "", fmt.Errorf("while closing blob: %w", err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		s.fs.Remove(tmp)
		return "", fmt.Errorf("while moving blob into place: %w", err)
	}
	return key, nil
}

// Get reads the blob behind key.
func (s *Store) Get(key string) ([]byte, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("%w: blob key %q", domain.ErrInvalidInput, key)
	}
	f, err := s.fs.Open(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: blob %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("while opening blob %s: %w", key, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Has reports whether key is stored.
func (s *Store) Has(key string) bool {
	if !validKey(key) {
		return false
	}
	_, err := s.fs.Stat(s.path(key))
	return err == nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Store) Delete(key string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: blob key %q", domain.ErrInvalidInput, key)
	}
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("while deleting blob %s: %w", key, err)
	}
	return nil
}
