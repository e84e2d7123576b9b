package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liquidinsider/storefront-api/internal/models"
)

//
// --- Admin Dashboard Stats ---
//

type LowStockProduct struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Inventory int    `json:"inventory"`
}

type AdminStats struct {
	TotalUsers    int               `json:"totalUsers"`
	TotalProducts int               `json:"totalProducts"`
	TotalOrders   int               `json:"totalOrders"`
	TotalRevenue  float64           `json:"totalRevenue"`
	PendingOrders int               `json:"pendingOrders"`
	LowStock      []LowStockProduct `json:"lowStock"`
	RecentOrders  []models.Order    `json:"recentOrders"`
}

// GetAdminStats returns KPI data for the admin dashboard
// GET /api/admin/stats
func (h *Handlers) GetAdminStats(c *gin.Context) {
	stats := AdminStats{
		LowStock:     []LowStockProduct{},
		RecentOrders: []models.Order{},
	}

	// 1. Headline counts
	err := h.DB.QueryRow("SELECT COUNT(*) FROM users").Scan(&stats.TotalUsers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}
	err = h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE active = TRUE").Scan(&stats.TotalProducts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count products"})
		return
	}
	err = h.DB.QueryRow("SELECT COUNT(*) FROM orders").Scan(&stats.TotalOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}

	// 2. Revenue: only orders whose payment actually completed count.
	// COALESCE so an empty shop reports 0 instead of NULL.
	queryRevenue := `
		SELECT COALESCE(SUM(o.total), 0)
		FROM orders o
		JOIN payments p ON p.order_id = o.id
		WHERE p.status = ?
	`
	err = h.DB.QueryRow(queryRevenue, models.PaymentStatusCompleted).Scan(&stats.TotalRevenue)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate revenue"})
		return
	}

	// 3. Orders still waiting on payment
	err = h.DB.QueryRow("SELECT COUNT(*) FROM orders WHERE status = ?", models.OrderStatusPending).
		Scan(&stats.PendingOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count pending orders"})
		return
	}

	// 4. Low stock (< 10) among active products
	rows, err := h.DB.Query(`
		SELECT id, name, slug, inventory
		FROM products
		WHERE active = TRUE AND inventory < 10
		ORDER BY inventory ASC`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query low stock"})
		return
	}
	defer rows.Close()
	for rows.Next() {
		var p LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Inventory); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan low stock row"})
			return
		}
		stats.LowStock = append(stats.LowStock, p)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating low stock rows"})
		return
	}

	// 5. Five most recent orders
	orderRows, err := h.DB.Query(
		fmt.Sprintf("SELECT %s FROM orders ORDER BY created_at DESC LIMIT 5", orderColumns))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query recent orders"})
		return
	}
	defer orderRows.Close()
	for orderRows.Next() {
		o, err := scanOrder(orderRows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan recent order"})
			return
		}
		stats.RecentOrders = append(stats.RecentOrders, o)
	}
	if err := orderRows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating recent orders"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
