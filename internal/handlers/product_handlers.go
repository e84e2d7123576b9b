package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/liquidinsider/storefront-api/internal/models"
)

//
// --- Product Handlers ---
//

// sortColumns whitelists the ORDER BY targets for product listings.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"price":     "price",
}

// GetProducts is the handler for GET /api/products
// Query params: page, limit, category (slug), search, minPrice,
// maxPrice, featured, sortBy, sortOrder.
func (h *Handlers) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))
	if limit < 1 || limit > 100 {
		limit = 12
	}

	where := "WHERE p.active = TRUE"
	args := []interface{}{}

	if categorySlug := c.Query("category"); categorySlug != "" {
		where += " AND cat.slug = ?"
		args = append(args, categorySlug)
	}
	if search := c.Query("search"); search != "" {
		where += " AND (p.name LIKE ? OR p.description LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if minPrice := c.Query("minPrice"); minPrice != "" {
		if v, err := strconv.ParseFloat(minPrice, 64); err == nil {
			where += " AND p.price >= ?"
			args = append(args, v)
		}
	}
	if maxPrice := c.Query("maxPrice"); maxPrice != "" {
		if v, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			where += " AND p.price <= ?"
			args = append(args, v)
		}
	}
	if c.Query("featured") == "true" {
		where += " AND p.featured = TRUE"
	}

	sortBy, ok := sortColumns[c.DefaultQuery("sortBy", "createdAt")]
	if !ok {
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if c.Query("sortOrder") == "asc" {
		sortOrder = "ASC"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM products p JOIN categories cat ON p.category_id = cat.id " + where
	if err := h.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count products"})
		return
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.slug, p.description, p.price, p.inventory, p.active, p.featured,
			p.category_id, cat.name, p.created_at, p.updated_at
		FROM products p
		JOIN categories cat ON p.category_id = cat.id
		%s
		ORDER BY p.%s %s
		LIMIT ? OFFSET ?`, where, sortBy, sortOrder)
	args = append(args, limit, (page-1)*limit)

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Inventory,
			&p.Active, &p.Featured, &p.CategoryID, &p.CategoryName, &p.CreatedAt, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}

	totalPages := (total + limit - 1) / limit
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// GetFeaturedProducts is the handler for GET /api/products/featured
func (h *Handlers) GetFeaturedProducts(c *gin.Context) {
	rows, err := h.DB.Query(`
		SELECT p.id, p.name, p.slug, p.description, p.price, p.inventory, p.active, p.featured,
			p.category_id, cat.name, p.created_at, p.updated_at
		FROM products p
		JOIN categories cat ON p.category_id = cat.id
		WHERE p.active = TRUE AND p.featured = TRUE
		ORDER BY p.created_at DESC
		LIMIT 8`)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch featured products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Inventory,
			&p.Active, &p.Featured, &p.CategoryID, &p.CategoryName, &p.CreatedAt, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// loadProductImages attaches a product's image rows, ordered for display.
func (h *Handlers) loadProductImages(productID int64) ([]models.ProductImage, error) {
	rows, err := h.DB.Query(`
		SELECT id, product_id, original_url, thumbnail_url, medium_url, large_url, webp_url,
			file_name, file_size, mime_type, width, height, storage_type, display_order, is_primary, created_at
		FROM product_images
		WHERE product_id = ?
		ORDER BY display_order ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []models.ProductImage{}
	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.OriginalURL, &img.ThumbnailURL, &img.MediumURL,
			&img.LargeURL, &img.WebpURL, &img.FileName, &img.FileSize, &img.MimeType, &img.Width,
			&img.Height, &img.StorageType, &img.DisplayOrder, &img.IsPrimary, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// GetProduct is the handler for GET /api/products/:id
// Accepts a numeric ID or a slug.
func (h *Handlers) GetProduct(c *gin.Context) {
	idOrSlug := c.Param("id")

	var p models.Product
	var err error

	baseQuery := `
		SELECT p.id, p.name, p.slug, p.description, p.price, p.inventory, p.active, p.featured,
			p.category_id, cat.name, p.created_at, p.updated_at
		FROM products p
		JOIN categories cat ON p.category_id = cat.id `

	scan := func(row *sql.Row) error {
		return row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Inventory,
			&p.Active, &p.Featured, &p.CategoryID, &p.CategoryName, &p.CreatedAt, &p.UpdatedAt)
	}

	if id, convErr := strconv.ParseInt(idOrSlug, 10, 64); convErr == nil {
		err = scan(h.DB.QueryRow(baseQuery+"WHERE p.id = ?", id))
	} else {
		err = scan(h.DB.QueryRow(baseQuery+"WHERE p.slug = ?", idOrSlug))
	}

	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}

	images, err := h.loadProductImages(p.ID)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product images"})
		return
	}
	p.Images = images

	c.JSON(http.StatusOK, p)
}

// ProductInput is the JSON body for creating/updating a product.
type ProductInput struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"gte=0"`
	Inventory   int     `json:"inventory" binding:"gte=0"`
	CategoryID  int64   `json:"categoryId" binding:"required"`
	Active      *bool   `json:"active"`
	Featured    *bool   `json:"featured"`
}

// CreateProduct is the handler for POST /api/products (admin-only)
func (h *Handlers) CreateProduct(c *gin.Context) {
	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	productSlug := slug.Make(input.Name)

	var exists int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE slug = ?", productSlug).Scan(&exists); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check product"})
		return
	}
	if exists > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Product with this name already exists"})
		return
	}

	var categoryExists int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM categories WHERE id = ?", input.CategoryID).Scan(&categoryExists); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check category"})
		return
	}
	if categoryExists == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	featured := false
	if input.Featured != nil {
		featured = *input.Featured
	}

	now := time.Now()
	result, err := h.DB.Exec(`
		INSERT INTO products (name, slug, description, price, inventory, active, featured, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Name, productSlug, input.Description, input.Price, input.Inventory, active, featured, input.CategoryID, now, now)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}
	id, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, models.Product{
		ID:          id,
		Name:        input.Name,
		Slug:        productSlug,
		Description: input.Description,
		Price:       input.Price,
		Inventory:   input.Inventory,
		Active:      active,
		Featured:    featured,
		CategoryID:  input.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// UpdateProduct is the handler for PUT /api/products/:id (admin-only)
func (h *Handlers) UpdateProduct(c *gin.Context) {
	productID := c.Param("id")

	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	productSlug := slug.Make(input.Name)

	var conflict int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE slug = ? AND id != ?", productSlug, productID).Scan(&conflict); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check product"})
		return
	}
	if conflict > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Product with this name already exists"})
		return
	}

	var categoryExists int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM categories WHERE id = ?", input.CategoryID).Scan(&categoryExists); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check category"})
		return
	}
	if categoryExists == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	featured := false
	if input.Featured != nil {
		featured = *input.Featured
	}

	result, err := h.DB.Exec(`
		UPDATE products
		SET name = ?, slug = ?, description = ?, price = ?, inventory = ?, active = ?, featured = ?, category_id = ?, updated_at = ?
		WHERE id = ?`,
		input.Name, productSlug, input.Description, input.Price, input.Inventory, active, featured,
		input.CategoryID, time.Now(), productID)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully"})
}

// DeleteProduct is the handler for DELETE /api/products/:id
// (admin-only). Deletion is unconditional; order items keep their
// price/quantity snapshot even when the product row goes away.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	productID := c.Param("id")

	result, err := h.DB.Exec("DELETE FROM products WHERE id = ?", productID)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
