package handlers

import (
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liquidinsider/storefront-api/internal/images"
	"github.com/liquidinsider/storefront-api/internal/models"
	"github.com/liquidinsider/storefront-api/internal/storage"
)

//
// --- Product Image Handlers ---
//

const maxUploadBatch = 10

// savedObject tracks one stored rendition so a mid-batch failure can
// clean up everything written before it.
type savedObject struct {
	variant  string
	fileName string
}

// UploadProductImages is the handler for POST /api/products/:id/images.
// It accepts up to ten files under the multipart field "images",
// validates the whole batch before touching storage, then processes
// and stores every rendition and records the rows in one transaction.
// If anything fails after objects were written, those objects are
// deleted again so storage and database stay consistent.
func (h *Handlers) UploadProductImages(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var exists bool
	err = h.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)", productID).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No images provided"})
		return
	}
	if len(files) > maxUploadBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Maximum %d images per upload", maxUploadBatch)})
		return
	}

	// Validate the whole batch up front. One bad file rejects the
	// request before any processing starts.
	for _, f := range files {
		if f.Size > h.Cfg.MaxImageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File %s exceeds the maximum size", f.Filename)})
			return
		}
		contentType := f.Header.Get("Content-Type")
		if !images.AllowedMimeTypes[contentType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File %s has unsupported type %s", f.Filename, contentType)})
			return
		}
	}

	opts := images.Options{
		Quality:         h.Cfg.ImageQuality,
		ThumbnailWidth:  h.Cfg.ThumbnailWidth,
		ThumbnailHeight: h.Cfg.ThumbnailHeight,
		MediumWidth:     h.Cfg.MediumWidth,
		MediumHeight:    h.Cfg.MediumHeight,
		LargeWidth:      h.Cfg.LargeWidth,
		LargeHeight:     h.Cfg.LargeHeight,
	}

	ctx := c.Request.Context()
	var saved []savedObject
	cleanup := func() {
		for _, obj := range saved {
			if err := h.Store.Delete(ctx, productID, obj.variant, obj.fileName); err != nil {
				h.Log.Warn("failed to clean up stored rendition",
					zap.Int64("productID", productID),
					zap.String("variant", obj.variant),
					zap.String("file", obj.fileName),
					zap.Error(err))
			}
		}
	}

	type pendingImage struct {
		img  models.ProductImage
		size int64
		mime string
	}

	pending := make([]pendingImage, 0, len(files))
	for _, f := range files {
		data, err := readMultipartFile(f)
		if err != nil {
			cleanup()
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to read file %s", f.Filename)})
			return
		}

		result, err := images.Process(data, opts)
		if err != nil {
			cleanup()
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to process file %s", f.Filename)})
			return
		}

		urls := make(map[string]string, len(result.Renditions))
		for _, r := range result.Renditions {
			url, err := h.Store.Save(ctx, productID, r.Variant, r.FileName, r.Data, r.ContentType)
			if err != nil {
				cleanup()
				h.serverError(c.FullPath(), c.Request.Method, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
				return
			}
			saved = append(saved, savedObject{variant: r.Variant, fileName: r.FileName})
			urls[r.Variant] = url
		}

		pending = append(pending, pendingImage{
			img: models.ProductImage{
				ProductID:    productID,
				OriginalURL:  urls[storage.VariantOriginal],
				ThumbnailURL: urls[storage.VariantThumbnail],
				MediumURL:    urls[storage.VariantMedium],
				LargeURL:     urls[storage.VariantLarge],
				WebpURL:      urls[storage.VariantWebp],
				FileName:     result.FileName,
				Width:        result.Width,
				Height:       result.Height,
			},
			size: f.Size,
			mime: f.Header.Get("Content-Type"),
		})
	}

	tx, err := h.DB.Begin()
	if err != nil {
		cleanup()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	// New images append after the current order; the very first image a
	// product ever gets becomes primary.
	var maxOrder sql.NullInt64
	var count int
	err = tx.QueryRow("SELECT MAX(display_order), COUNT(*) FROM product_images WHERE product_id = ?", productID).
		Scan(&maxOrder, &count)
	if err != nil {
		cleanup()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	nextOrder := 0
	if maxOrder.Valid {
		nextOrder = int(maxOrder.Int64) + 1
	}

	created := make([]models.ProductImage, 0, len(pending))
	now := time.Now()
	for i, p := range pending {
		img := p.img
		img.FileSize = p.size
		img.MimeType = p.mime
		img.StorageType = h.Store.Type()
		img.DisplayOrder = nextOrder + i
		img.IsPrimary = count == 0 && i == 0
		img.CreatedAt = now

		result, err := tx.Exec(`
			INSERT INTO product_images
				(product_id, original_url, thumbnail_url, medium_url, large_url, webp_url,
				 file_name, file_size, mime_type, width, height, storage_type,
				 display_order, is_primary, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			img.ProductID, img.OriginalURL, img.ThumbnailURL, img.MediumURL, img.LargeURL, img.WebpURL,
			img.FileName, img.FileSize, img.MimeType, img.Width, img.Height, img.StorageType,
			img.DisplayOrder, img.IsPrimary, img.CreatedAt)
		if err != nil {
			cleanup()
			h.serverError(c.FullPath(), c.Request.Method, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record image"})
			return
		}
		img.ID, _ = result.LastInsertId()
		created = append(created, img)
	}

	if err := tx.Commit(); err != nil {
		cleanup()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"images": created})
}

// readMultipartFile opens and fully reads one uploaded file.
func readMultipartFile(f *multipart.FileHeader) ([]byte, error) {
	src, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

// GetProductImages is the handler for GET /api/products/:id/images
func (h *Handlers) GetProductImages(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	imgs, err := h.loadProductImages(productID)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query images"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": imgs})
}

// DeleteProductImage is the handler for DELETE /api/products/:id/images/:imageId.
// Storage objects are removed best-effort before the row; an orphaned
// object is just wasted space, an orphaned row would be a broken link.
func (h *Handlers) DeleteProductImage(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	imageID, err := strconv.ParseInt(c.Param("imageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID"})
		return
	}

	var fileName string
	var isPrimary bool
	err = h.DB.QueryRow("SELECT file_name, is_primary FROM product_images WHERE id = ? AND product_id = ?",
		imageID, productID).Scan(&fileName, &isPrimary)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	ctx := c.Request.Context()
	webpName := strings.TrimSuffix(fileName, ".jpg") + ".webp"
	for _, variant := range storage.Variants {
		name := fileName
		if variant == storage.VariantWebp {
			name = webpName
		}
		if err := h.Store.Delete(ctx, productID, variant, name); err != nil {
			h.Log.Warn("failed to delete stored rendition",
				zap.Int64("imageID", imageID),
				zap.String("variant", variant),
				zap.Error(err))
		}
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM product_images WHERE id = ?", imageID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
		return
	}

	// Deleting the primary image promotes the first remaining one.
	if isPrimary {
		_, err = tx.Exec(`
			UPDATE product_images SET is_primary = TRUE
			WHERE product_id = ?
			ORDER BY display_order ASC
			LIMIT 1`, productID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to promote primary image"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}

// ReorderImagesInput is the JSON body for PUT /api/products/:id/images/reorder
type ReorderImagesInput struct {
	Images []struct {
		ImageID      int64 `json:"imageId" binding:"required"`
		DisplayOrder int   `json:"displayOrder"`
	} `json:"images" binding:"required,min=1"`
}

// ReorderImages is the handler for PUT /api/products/:id/images/reorder
func (h *Handlers) ReorderImages(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var input ReorderImagesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	for _, entry := range input.Images {
		result, err := tx.Exec(`
			UPDATE product_images SET display_order = ?
			WHERE id = ? AND product_id = ?`,
			entry.DisplayOrder, entry.ImageID, productID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder images"})
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Image %d not found for this product", entry.ImageID)})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Images reordered"})
}

// SetPrimaryImage is the handler for PUT /api/products/:id/images/:imageId/primary.
// Clearing the old flag and setting the new one commit together, so
// readers never see zero or two primary images.
func (h *Handlers) SetPrimaryImage(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	imageID, err := strconv.ParseInt(c.Param("imageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID"})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE product_images SET is_primary = FALSE WHERE product_id = ?", productID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update images"})
		return
	}

	result, err := tx.Exec("UPDATE product_images SET is_primary = TRUE WHERE id = ? AND product_id = ?",
		imageID, productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update image"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Primary image updated"})
}
