// Package filestore keeps uploaded files on local disk under a fixed root,
// one subdirectory per category (application builds, photos).
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store reads and writes files below a root directory.
type Store struct {
	root string
}

// New creates the root directory if needed and returns the store.
func New(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create file store root: %w", err)
	}
	return &Store{root: root}, nil
}

// Save writes data under subfolder/name and returns the absolute path.
func (s *Store) Save(subfolder, name string, data []byte) (string, error) {
	path, err := s.resolve(subfolder, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// Read returns the contents of subfolder/name.
func (s *Store) Read(subfolder, name string) ([]byte, error) {
	path, err := s.resolve(subfolder, name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Remove deletes subfolder/name. Missing files are not an error.
func (s *Store) Remove(subfolder, name string) error {
	path, err := s.resolve(subfolder, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the absolute path of subfolder/name without touching disk.
func (s *Store) Path(subfolder, name string) (string, error) {
	return s.resolve(subfolder, name)
}

// resolve joins the parts and rejects names that would escape the root.
func (s *Store) resolve(subfolder, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}
	path := filepath.Join(s.root, subfolder, name)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return path, nil
}
