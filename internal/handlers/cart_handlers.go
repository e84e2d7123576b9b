package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//
// --- Cart Handlers ---
//

// getOrCreateCartID finds a user's cart or creates one lazily.
// Safe to call inside a transaction.
func (h *Handlers) getOrCreateCartID(tx *sql.Tx, userID int64) (int64, error) {
	var cartID int64
	err := tx.QueryRow("SELECT id FROM carts WHERE user_id = ?", userID).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}

	if err == sql.ErrNoRows {
		now := time.Now()
		result, err := tx.Exec("INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)", userID, now, now)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	}

	return 0, err
}

// CartItemResponse is one line of the cart response.
type CartItemResponse struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
	Inventory int     `json:"inventory"`
}

// GetCart is the handler for GET /api/cart
func (h *Handlers) GetCart(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var cartID int64
	err := h.DB.QueryRow("SELECT id FROM carts WHERE user_id = ?", userID).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			// No cart yet. Return an empty cart rather than 404.
			c.JSON(http.StatusOK, gin.H{
				"items":      []CartItemResponse{},
				"subtotal":   0.0,
				"totalItems": 0,
			})
			return
		}
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find cart"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT ci.product_id, p.name, p.slug, p.price, ci.quantity, p.inventory
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = ? AND p.active = TRUE`, cartID)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query cart items"})
		return
	}
	defer rows.Close()

	items := []CartItemResponse{}
	var subtotal float64
	var totalItems int

	for rows.Next() {
		var item CartItemResponse
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Slug, &item.Price, &item.Quantity, &item.Inventory); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart item"})
			return
		}
		item.LineTotal = item.Price * float64(item.Quantity)
		subtotal += item.LineTotal
		totalItems += item.Quantity
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating cart items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      items,
		"subtotal":   subtotal,
		"totalItems": totalItems,
	})
}

// AddToCartInput is the JSON body for POST /api/cart/items
type AddToCartInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// AddToCart is the handler for POST /api/cart/items
func (h *Handlers) AddToCart(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input AddToCartInput
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

	cartID, err := h.getOrCreateCartID(tx, userID)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cart initialization failed"})
		return
	}

	var inventory int
	err = tx.QueryRow("SELECT inventory FROM products WHERE id = ? AND active = TRUE", input.ProductID).Scan(&inventory)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found or not active"})
			return
		}
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// Adding must not push the line quantity past current inventory.
	var existingQty int
	err = tx.QueryRow("SELECT quantity FROM cart_items WHERE cart_id = ? AND product_id = ?", cartID, input.ProductID).Scan(&existingQty)
	if err != nil && err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if existingQty+input.Quantity > inventory {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient inventory"})
		return
	}

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			quantity = quantity + VALUES(quantity),
			updated_at = VALUES(updated_at)`,
		cartID, input.ProductID, input.Quantity, now, now)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Item added to cart"})
}

// UpdateCartItemInput is the JSON body for PUT /api/cart/items/:productId
type UpdateCartItemInput struct {
	// gte=0 so quantity 0 acts as a remove.
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// UpdateCartItem is the handler for PUT /api/cart/items/:productId
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)
	productIDStr := c.Param("productId")

	var input UpdateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quantity := *input.Quantity

	var cartID int64
	err := h.DB.QueryRow("SELECT id FROM carts WHERE user_id = ?", userID).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find cart"})
		return
	}

	if quantity == 0 {
		h.deleteCartItem(c, cartID, productIDStr)
		return
	}

	var inventory int
	err = h.DB.QueryRow("SELECT inventory FROM products WHERE id = ? AND active = TRUE", productIDStr).Scan(&inventory)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check product inventory"})
		return
	}
	if inventory < quantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient inventory"})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE cart_items SET quantity = ?, updated_at = ?
		WHERE cart_id = ? AND product_id = ?`,
		quantity, time.Now(), cartID, productIDStr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found in cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart item quantity updated"})
}

// RemoveCartItem is the handler for DELETE /api/cart/items/:productId
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)
	productIDStr := c.Param("productId")

	var cartID int64
	err := h.DB.QueryRow("SELECT id FROM carts WHERE user_id = ?", userID).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find cart"})
		return
	}

	h.deleteCartItem(c, cartID, productIDStr)
}

// deleteCartItem removes one line from a cart.
func (h *Handlers) deleteCartItem(c *gin.Context, cartID int64, productIDStr string) {
	result, err := h.DB.Exec("DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?", cartID, productIDStr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found in cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart item removed"})
}

// ClearCart is the handler for DELETE /api/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var cartID int64
	err := h.DB.QueryRow("SELECT id FROM carts WHERE user_id = ?", userID).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find cart"})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM cart_items WHERE cart_id = ?", cartID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
