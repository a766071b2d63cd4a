package handlers

import (
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
)

//
// --- Order Handlers ---
//

// OrderItemResponse is one line of a completed order.
type OrderItemResponse struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	LineTotal float64 `json:"lineTotal"`
}

// OrderResponse is a completed order with its lines.
type OrderResponse struct {
	ID               int64               `json:"id"`
	DateOrdered      time.Time           `json:"dateOrdered"`
	TransactionID    string              `json:"transactionId"`
	Status           string              `json:"status"`
	ExpectedDelivery *time.Time          `json:"expectedDelivery,omitempty"`
	CustomerName     string              `json:"customerName,omitempty"`
	Total            float64             `json:"total"`
	Items            []OrderItemResponse `json:"items"`
}

// loadOrderItems fetches the lines of one order. Prices are the
// product's current selling price; historical price capture is out of
// scope for this store.
func (h *Handlers) loadOrderItems(orderID int64) ([]OrderItemResponse, float64, error) {
	rows, err := h.DB.Query(`
		SELECT oi.product_id, p.name, oi.quantity, p.price, p.discount_price
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.date_added`, orderID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []OrderItemResponse{}
	var total float64
	for rows.Next() {
		var item OrderItemResponse
		var p models.Product
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &p.Price, &p.DiscountPrice); err != nil {
			return nil, 0, err
		}
		item.Price = p.SellingPrice()
		item.LineTotal = item.Price * float64(item.Quantity)
		total += item.LineTotal
		items = append(items, item)
	}
	return items, math.Round(total*100) / 100, rows.Err()
}

// GetMyOrders is the handler for GET /store/orders
// It returns the customer's completed orders, newest first.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	customerID, err := h.getOrCreateCustomerID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve customer profile"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, date_ordered, COALESCE(transaction_id, ''), status, expected_delivery
		FROM orders
		WHERE customer_id = ? AND complete = ?
		ORDER BY date_ordered DESC, id DESC`, customerID, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query orders"})
		return
	}
	defer rows.Close()

	orders := []OrderResponse{}
	for rows.Next() {
		var o OrderResponse
		var expected sql.NullTime
		if err := rows.Scan(&o.ID, &o.DateOrdered, &o.TransactionID, &o.Status, &expected); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		if expected.Valid {
			o.ExpectedDelivery = &expected.Time
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating orders"})
		return
	}

	for i := range orders {
		items, total, err := h.loadOrderItems(orders[i].ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order items"})
			return
		}
		orders[i].Items = items
		orders[i].Total = total
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetAllOrders is the handler for GET /portal/orders
// Staff see every completed order; ?status= narrows the list.
func (h *Handlers) GetAllOrders(c *gin.Context) {
	query := `
		SELECT o.id, o.date_ordered, COALESCE(o.transaction_id, ''), o.status, o.expected_delivery, COALESCE(cu.name, 'Guest')
		FROM orders o
		LEFT JOIN customers cu ON o.customer_id = cu.id
		WHERE o.complete = ?`
	args := []any{true}

	if status := c.Query("status"); status != "" {
		if !models.ValidOrderStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status"})
			return
		}
		query += " AND o.status = ?"
		args = append(args, status)
	}

	query += " ORDER BY o.date_ordered DESC, o.id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query orders"})
		return
	}
	defer rows.Close()

	orders := []OrderResponse{}
	for rows.Next() {
		var o OrderResponse
		var expected sql.NullTime
		if err := rows.Scan(&o.ID, &o.DateOrdered, &o.TransactionID, &o.Status, &expected, &o.CustomerName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		if expected.Valid {
			o.ExpectedDelivery = &expected.Time
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating orders"})
		return
	}

	for i := range orders {
		items, total, err := h.loadOrderItems(orders[i].ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order items"})
			return
		}
		orders[i].Items = items
		orders[i].Total = total
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type UpdateOrderStatusInput struct {
	Status           string  `json:"status" binding:"required"`
	ExpectedDelivery *string `json:"expectedDelivery"` // YYYY-MM-DD; "" clears it, omitted leaves it untouched
}

// UpdateOrderStatus is the handler for PATCH /portal/orders/:id
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidOrderStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status"})
		return
	}

	var expectedDelivery *time.Time
	if input.ExpectedDelivery != nil && *input.ExpectedDelivery != "" {
		t, err := time.Parse("2006-01-02", *input.ExpectedDelivery)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expectedDelivery (want YYYY-MM-DD)"})
			return
		}
		expectedDelivery = &t
	}

	var oldStatus string
	err = h.DB.QueryRow("SELECT status FROM orders WHERE id = ? AND complete = ?", orderID, true).Scan(&oldStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query order"})
		return
	}

	if input.ExpectedDelivery == nil {
		_, err = h.DB.Exec("UPDATE orders SET status = ? WHERE id = ?", input.Status, orderID)
	} else {
		_, err = h.DB.Exec("UPDATE orders SET status = ?, expected_delivery = ? WHERE id = ?",
			input.Status, expectedDelivery, orderID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	if oldStatus != input.Status {
		logActivity(h.DB, &userID, models.ActionOrderStatusUpdated,
			fmt.Sprintf("Order %d status changed from %s to %s.", orderID, oldStatus, input.Status),
			&orderID, fmt.Sprintf("Order %d", orderID))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order updated"})
}
