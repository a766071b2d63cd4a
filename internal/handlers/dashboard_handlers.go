package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
)

//
// --- Staff Dashboard Stats ---
//

// lowStockThreshold marks products the dashboard flags for restocking.
const lowStockThreshold = 5

type LowStockProduct struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

type TopSeller struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	UnitsSold int    `json:"unitsSold"`
}

type DashboardStats struct {
	ProductCount   int                  `json:"productCount"`
	CategoryCount  int                  `json:"categoryCount"`
	PendingOrders  int                  `json:"pendingOrders"`
	OpenRequests   int                  `json:"openRequests"`
	LowStock       []LowStockProduct    `json:"lowStock"`
	TopSellers     []TopSeller          `json:"topSellers"`
	RecentActivity []models.ActivityLog `json:"recentActivity"`
}

// GetDashboardStats returns KPI data for the portal dashboard
// GET /portal/dashboard
func (h *Handlers) GetDashboardStats(c *gin.Context) {
	stats := DashboardStats{
		LowStock:       []LowStockProduct{},
		TopSellers:     []TopSeller{},
		RecentActivity: []models.ActivityLog{},
	}

	// 1. Catalog counts
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM products").Scan(&stats.ProductCount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count products"})
		return
	}
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM categories").Scan(&stats.CategoryCount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count categories"})
		return
	}

	// 2. Pending fulfilment and open service requests
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM orders WHERE complete = ? AND status = ?", true, models.OrderStatusPending).Scan(&stats.PendingOrders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count pending orders"})
		return
	}
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM service_requests WHERE status IN (?, ?, ?)",
		models.RequestStatusPending, models.RequestStatusQuoted, models.RequestStatusInProgress).Scan(&stats.OpenRequests); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count open requests"})
		return
	}

	// 3. Low stock list
	rows, err := h.DB.Query("SELECT id, name, stock_quantity FROM products WHERE stock_quantity <= ? ORDER BY stock_quantity, name", lowStockThreshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query low stock"})
		return
	}
	for rows.Next() {
		var p LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock); err != nil {
			rows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan low stock row"})
			return
		}
		stats.LowStock = append(stats.LowStock, p)
	}
	rows.Close()

	// 4. Top sellers (units across completed orders)
	rows, err = h.DB.Query(`
		SELECT p.id, p.name, COALESCE(SUM(oi.quantity), 0) AS units
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.id
		JOIN products p ON oi.product_id = p.id
		WHERE o.complete = ?
		GROUP BY p.id, p.name
		ORDER BY units DESC
		LIMIT 5`, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query top sellers"})
		return
	}
	for rows.Next() {
		var t TopSeller
		if err := rows.Scan(&t.ProductID, &t.Name, &t.UnitsSold); err != nil {
			rows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan top seller row"})
			return
		}
		stats.TopSellers = append(stats.TopSellers, t)
	}
	rows.Close()

	// 5. Latest ledger entries
	rows, err = h.DB.Query(`
		SELECT a.id, a.action_time, a.action_type, a.description, COALESCE(u.username, '')
		FROM activity_logs a
		LEFT JOIN users u ON a.user_id = u.id
		ORDER BY a.action_time DESC, a.id DESC
		LIMIT 10`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query recent activity"})
		return
	}
	for rows.Next() {
		var entry models.ActivityLog
		if err := rows.Scan(&entry.ID, &entry.ActionTime, &entry.ActionType, &entry.Description, &entry.Username); err != nil {
			rows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan activity row"})
			return
		}
		stats.RecentActivity = append(stats.RecentActivity, entry)
	}
	rows.Close()

	c.JSON(http.StatusOK, stats)
}
