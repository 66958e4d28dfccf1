package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store persists uploaded documents on the local filesystem. Files are
// addressed by an opaque key so original filenames never touch disk.
type Store struct {
	root string
}

// New creates the storage root if needed and returns a Store.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// Save writes the reader's contents under a fresh key and returns the
// key and the number of bytes written. The key embeds the original
// file extension so downloads can carry a sensible content type.
func (s *Store) Save(r io.Reader, origName string) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(origName))
	key := uuid.NewString() + ext

	dir := filepath.Join(s.root, key[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create bucket dir: %w", err)
	}

	path := filepath.Join(dir, key)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("write file: %w", err)
	}
	return key, n, nil
}

// Open returns a reader for the stored key.
func (s *Store) Open(key string) (io.ReadSeekCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes the stored file. Missing files are not an error.
func (s *Store) Delete(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) resolve(key string) (string, error) {
	if len(key) < 2 || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key")
	}
	return filepath.Join(s.root, key[:2], key), nil
}
