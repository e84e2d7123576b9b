package models

import "time"

// ProductImage is the model for the 'product_images' table. Each row
// records the five derived renditions of one uploaded file. Exactly one
// image per product with images carries is_primary=true; the handlers
// enforce this transactionally.
type ProductImage struct {
	ID           int64     `json:"id" db:"id"`
	ProductID    int64     `json:"productId" db:"product_id"`
	OriginalURL  string    `json:"originalUrl" db:"original_url"`
	ThumbnailURL string    `json:"thumbnailUrl" db:"thumbnail_url"`
	MediumURL    string    `json:"mediumUrl" db:"medium_url"`
	LargeURL     string    `json:"largeUrl" db:"large_url"`
	WebpURL      string    `json:"webpUrl" db:"webp_url"`
	FileName     string    `json:"fileName" db:"file_name"`
	FileSize     int64     `json:"fileSize" db:"file_size"`
	MimeType     string    `json:"mimeType" db:"mime_type"`
	Width        int       `json:"width" db:"width"`
	Height       int       `json:"height" db:"height"`
	StorageType  string    `json:"storageType" db:"storage_type"`
	DisplayOrder int       `json:"displayOrder" db:"display_order"`
	IsPrimary    bool      `json:"isPrimary" db:"is_primary"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
