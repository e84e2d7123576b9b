package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/liquidinsider/storefront-api/internal/models"
)

//
// --- Category Handlers ---
//

// GetCategories is the handler for GET /api/categories
func (h *Handlers) GetCategories(c *gin.Context) {
	rows, err := h.DB.Query(`
		SELECT c.id, c.name, c.slug, c.description, c.image, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id) AS product_count
		FROM categories c
		ORDER BY c.name ASC`)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.Image,
			&cat.CreatedAt, &cat.UpdatedAt, &cat.ProductCount); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan category"})
			return
		}
		categories = append(categories, cat)
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetCategory is the handler for GET /api/categories/:slug
func (h *Handlers) GetCategory(c *gin.Context) {
	categorySlug := c.Param("slug")

	var cat models.Category
	err := h.DB.QueryRow(`
		SELECT id, name, slug, description, image, created_at, updated_at
		FROM categories WHERE slug = ?`, categorySlug).
		Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.Image, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category"})
		return
	}

	c.JSON(http.StatusOK, cat)
}

// CategoryInput is the JSON body for creating/updating a category.
type CategoryInput struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

// CreateCategory is the handler for POST /api/categories (admin-only)
func (h *Handlers) CreateCategory(c *gin.Context) {
	var input CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	categorySlug := slug.Make(input.Name)

	var exists int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM categories WHERE slug = ?", categorySlug).Scan(&exists); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check category"})
		return
	}
	if exists > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Category with this name already exists"})
		return
	}

	now := time.Now()
	result, err := h.DB.Exec(`
		INSERT INTO categories (name, slug, description, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		input.Name, categorySlug, input.Description, input.Image, now, now)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}
	id, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, models.Category{
		ID:          id,
		Name:        input.Name,
		Slug:        categorySlug,
		Description: input.Description,
		Image:       input.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// UpdateCategory is the handler for PUT /api/categories/:id (admin-only)
func (h *Handlers) UpdateCategory(c *gin.Context) {
	categoryID := c.Param("id")

	var input CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	categorySlug := slug.Make(input.Name)

	// The new slug may collide with a different category.
	var conflict int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM categories WHERE slug = ? AND id != ?", categorySlug, categoryID).Scan(&conflict); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check category"})
		return
	}
	if conflict > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Category with this name already exists"})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE categories SET name = ?, slug = ?, description = ?, image = ?, updated_at = ?
		WHERE id = ?`,
		input.Name, categorySlug, input.Description, input.Image, time.Now(), categoryID)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category updated successfully"})
}

// DeleteCategory is the handler for DELETE /api/categories/:id
// (admin-only). Deletion is blocked while the category still owns
// products.
func (h *Handlers) DeleteCategory(c *gin.Context) {
	categoryID := c.Param("id")

	var productCount int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE category_id = ?", categoryID).Scan(&productCount); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check category products"})
		return
	}
	if productCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete category with existing products"})
		return
	}

	result, err := h.DB.Exec("DELETE FROM categories WHERE id = ?", categoryID)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
