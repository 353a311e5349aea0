package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// Image is a screenshot stored on disk and referenced by at most one dialog
// and/or used as a dialog group's cover. It is reference-counted conceptually
// via those two back-links; the reaper removes it once both are gone.
type Image struct {
	// ID is the system generated unique identifier for the image.
	ID int32
	// UID is the stable unique identifier exposed to clients.
	UID string

	CreatedTs int64

	// LocalPath is the filename relative to the data directory.
	LocalPath *string
	// RemotePath is an optional URL when the image also lives remotely.
	RemotePath *string
}

type FindImage struct {
	ID  *int32
	UID *string
	// OrphanedOnly restricts the result to images with no referencing dialog
	// and no group using them as cover.
	OrphanedOnly bool
	Limit        *int
}

type DeleteImage struct {
	ID int32
}

func (s *Store) CreateImage(ctx context.Context, create *Image) (*Image, error) {
	return s.driver.CreateImage(ctx, create)
}

func (s *Store) ListImages(ctx context.Context, find *FindImage) ([]*Image, error) {
	return s.driver.ListImages(ctx, find)
}

func (s *Store) GetImage(ctx context.Context, find *FindImage) (*Image, error) {
	images, err := s.ListImages(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}
	return images[0], nil
}

// DeleteImage removes the image row and its file. The file is removed first,
// while the record still resolves to a valid path; a missing file is not an
// error so the operation stays idempotent.
func (s *Store) DeleteImage(ctx context.Context, delete *DeleteImage) error {
	image, err := s.GetImage(ctx, &FindImage{ID: &delete.ID})
	if err != nil {
		return err
	}
	if image == nil {
		return nil
	}

	if image.LocalPath != nil && *image.LocalPath != "" {
		p := filepath.FromSlash(*image.LocalPath)
		if !filepath.IsAbs(p) {
			p = filepath.Join(s.profile.Data, p)
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			// Log but don't prevent row deletion.
			slog.Error("failed to delete image file",
				"error", err,
				"path", p,
				"image_id", delete.ID,
			)
		}
	}

	return s.driver.DeleteImage(ctx, delete)
}
