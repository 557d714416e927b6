// Package blob provides storage for uploaded audio blobs, for clients that
// upload a segment first and reference it by key when submitting.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested blob does not exist.
var ErrNotFound = errors.New("blob: not found")

// Store persists opaque blobs by key.
type Store interface {
	// Put stores data and returns its generated key.
	Put(ctx context.Context, data []byte) (string, error)

	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob under key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
}

// Compile-time assertion that FSStore implements Store.
var _ Store = (*FSStore)(nil)

// FSStore stores blobs as files in a single directory. Keys are generated
// UUIDs, so the store never writes outside its directory.
type FSStore struct {
	dir string
}

// NewFSStore creates the directory if needed and returns a store over it.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("blob: create dir %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

// Put implements Store.
func (s *FSStore) Put(ctx context.Context, data []byte) (string, error) {
	key := uuid.NewString()
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o600); err != nil {
		return "", fmt.Errorf("blob: write %s: %w", key, err)
	}
	return key, nil
}

// Get implements Store.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blob: read %s: %w", key, err)
	}
	return data, nil
}

// Delete implements Store.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob: delete %s: %w", key, err)
	}
	return nil
}

// validKey rejects anything that is not a bare UUID, closing off path
// traversal through client-supplied keys.
func validKey(key string) bool {
	if key == "" || strings.ContainsAny(key, "/\\.") {
		return false
	}
	_, err := uuid.Parse(key)
	return err == nil
}
