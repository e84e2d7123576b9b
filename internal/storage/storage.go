// Package storage persists image renditions behind a small interface
// with two backends: local disk and S3. The backend is a static
// configuration choice made at startup, not per call.
package storage

import (
	"context"
	"fmt"

	"github.com/liquidinsider/storefront-api/internal/config"
)

// Rendition variant names, also used as path segments.
const (
	VariantOriginal  = "original"
	VariantThumbnail = "thumbnail"
	VariantMedium    = "medium"
	VariantLarge     = "large"
	VariantWebp      = "webp"
)

// Variants lists every rendition a single upload produces.
var Variants = []string{VariantOriginal, VariantThumbnail, VariantMedium, VariantLarge, VariantWebp}

// Storage saves and deletes image renditions. Save returns the public
// URL for the stored object.
type Storage interface {
	Save(ctx context.Context, productID int64, variant, fileName string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, productID int64, variant, fileName string) error
	Type() string
}

// New selects a backend from the configuration.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageType {
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "local":
		return NewLocalStorage(cfg.UploadDir), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q (want local or s3)", cfg.StorageType)
	}
}
