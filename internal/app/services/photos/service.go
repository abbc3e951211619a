// Package photos stores uploaded images on disk and their metadata in the
// photo store.
package photos

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frogworks/storefront/internal/app/domain/photo"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/internal/filestore"
	"github.com/frogworks/storefront/pkg/logger"
)

// maxPhotoBytes caps uploads at 8 MiB.
const maxPhotoBytes = 8 << 20

// Service manages photo uploads.
type Service struct {
	store storage.PhotoStore
	files *filestore.Store
	log   *logger.Logger
}

// New constructs a photo service.
func New(store storage.PhotoStore, files *filestore.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("photos")
	}
	return &Service{store: store, files: files, log: log}
}

// Upload writes the image to disk and records its metadata. The stored
// filename is generated; the original name only contributes its extension.
func (s *Service) Upload(ctx context.Context, subfolder, originalName string, data []byte) (photo.Photo, error) {
	if len(data) == 0 {
		return photo.Photo{}, fmt.Errorf("photo data is required")
	}
	if len(data) > maxPhotoBytes {
		return photo.Photo{}, fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}
	subfolder = strings.TrimSpace(subfolder)
	if subfolder == "" {
		subfolder = "misc"
	}

	ext := strings.ToLower(path.Ext(originalName))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		return photo.Photo{}, fmt.Errorf("unsupported image type %q", ext)
	}

	filename := uuid.NewString() + ext
	if _, err := s.files.Save(subfolder, filename, data); err != nil {
		return photo.Photo{}, err
	}

	p, err := s.store.CreatePhoto(ctx, photo.Photo{
		Filename:  filename,
		Subfolder: subfolder,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		// The metadata write failed after the file landed; drop the file
		// so the two stay consistent.
		_ = s.files.Remove(subfolder, filename)
		return photo.Photo{}, err
	}

	s.log.WithField("photo_id", p.ID).
		WithField("subfolder", subfolder).
		Info("photo uploaded")
	return p, nil
}

// Load returns a photo's metadata and bytes.
func (s *Service) Load(ctx context.Context, id string) (photo.Photo, []byte, error) {
	p, err := s.store.GetPhoto(ctx, id)
	if err != nil {
		return photo.Photo{}, nil, err
	}
	data, err := s.files.Read(p.Subfolder, p.Filename)
	if err != nil {
		return photo.Photo{}, nil, fmt.Errorf("read photo %s: %w", id, err)
	}
	return p, data, nil
}

// Get returns a photo's metadata only.
func (s *Service) Get(ctx context.Context, id string) (photo.Photo, error) {
	return s.store.GetPhoto(ctx, id)
}
