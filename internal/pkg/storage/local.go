// internal/pkg/storage/local.go
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/your-org/storefront-backend/internal/config"
)

// BlobStore is the opaque image/file storage collaborator. Callers treat the
// returned reference as an opaque string and never interpret its structure.
type BlobStore interface {
	Store(data []byte, folder, filename string) (string, error)
	Delete(ref string) error
}

// LocalStore stores blobs on the local filesystem under a configured root
type LocalStore struct {
	root       string
	publicBase string
}

// NewLocalStore creates a filesystem-backed blob store
func NewLocalStore(cfg *config.Config) *LocalStore {
	return &LocalStore{
		root:       cfg.External.Storage.LocalPath,
		publicBase: cfg.External.Storage.PublicBase,
	}
}

// Store writes data under folder with a uuid-prefixed filename and returns
// the public reference string
func (s *LocalStore) Store(data []byte, folder, filename string) (string, error) {
	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s", uuid.New().String(), filepath.Base(filename))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return s.publicBase + "/" + folder + "/" + name, nil
}

// Delete removes a previously stored blob. Unknown references are a no-op.
func (s *LocalStore) Delete(ref string) error {
	rel := strings.TrimPrefix(ref, s.publicBase+"/")
	if rel == ref || strings.Contains(rel, "..") {
		return fmt.Errorf("invalid blob reference: %s", ref)
	}

	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
