package handlers

import (
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
)

//
// --- Checkout (Storefront) ---
//

// ShippingInput is the address block submitted with a checkout.
type ShippingInput struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`
	Country string `json:"country"`
}

// CheckoutFormInput carries what the client believes the cart costs;
// it is verified against a server-side recomputation before anything
// is committed.
type CheckoutFormInput struct {
	Total float64 `json:"total"`
}

// ProcessOrderInput defines the JSON for POST /store/checkout.
type ProcessOrderInput struct {
	Form     CheckoutFormInput `json:"form"`
	Shipping *ShippingInput    `json:"shipping"`
}

// checkoutLine carries one cart line through the checkout transaction.
type checkoutLine struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice float64
	Digital   bool
}

// ProcessOrder is the handler for POST /store/checkout
// The whole operation runs in one transaction: total verification,
// stock reconciliation, order completion, shipping address and ledger
// entries all commit together or not at all.
func (h *Handlers) ProcessOrder(c *gin.Context) {
	// 1. --- Get Customer ID ---
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input ProcessOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	customerID, err := h.getOrCreateCustomerID(tx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve customer profile"})
		return
	}

	// 2. --- Find the open order ---
	var orderID int64
	err = tx.QueryRow("SELECT id FROM orders WHERE customer_id = ? AND complete = ?", customerID, false).Scan(&orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No open cart to check out"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find cart"})
		return
	}

	// 3. --- Load the cart lines with their product state ---
	rows, err := tx.Query(`
		SELECT oi.product_id, p.name, oi.quantity, p.price, p.discount_price, p.digital
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.date_added`, orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query cart items"})
		return
	}

	var lines []checkoutLine
	for rows.Next() {
		var line checkoutLine
		var p models.Product
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Quantity, &p.Price, &p.DiscountPrice, &line.Digital); err != nil {
			rows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart item"})
			return
		}
		line.UnitPrice = p.SellingPrice()
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating cart items"})
		return
	}
	rows.Close()

	if len(lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	// 4. --- Verify the submitted total against our own arithmetic ---
	// Both sides are rounded to cents before comparing; a stale client
	// price means the order must not complete.
	var serverTotal float64
	requiresShipping := false
	for _, line := range lines {
		serverTotal += line.UnitPrice * float64(line.Quantity)
		if !line.Digital {
			requiresShipping = true
		}
	}
	if math.Round(input.Form.Total*100)/100 != math.Round(serverTotal*100)/100 {
		c.JSON(http.StatusConflict, gin.H{"error": "Cart total mismatch, please refresh your cart"})
		return
	}

	if requiresShipping && input.Shipping == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Shipping address required"})
		return
	}

	// 5. --- Reconcile stock line by line ---
	// Any shortage aborts the whole checkout before a single decrement
	// is visible outside the transaction.
	for _, line := range lines {
		var stock int
		if err := tx.QueryRow("SELECT stock_quantity FROM products WHERE id = ?", line.ProductID).Scan(&stock); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check product stock"})
			return
		}
		if stock < line.Quantity {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Insufficient stock for '%s'", line.Name)})
			return
		}

		newStock := stock - line.Quantity
		if _, err := tx.Exec("UPDATE products SET stock_quantity = ?, updated_at = ? WHERE id = ?", newStock, time.Now(), line.ProductID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product stock"})
			return
		}

		// One ledger entry per line, worded from the store's perspective.
		productID := line.ProductID
		logActivity(tx, &userID, models.ActionOrderCompleted,
			fmt.Sprintf("Order %d sold %d units of '%s'. Stock reduced to %d.", orderID, line.Quantity, line.Name, newStock),
			&productID, line.Name)
	}

	// 6. --- Complete the order ---
	// date_ordered stays as set at cart creation; completion only stamps
	// the transaction reference and flips the flag.
	transactionID := fmt.Sprintf("%d", time.Now().UnixNano())
	now := time.Now()
	if _, err := tx.Exec("UPDATE orders SET complete = ?, transaction_id = ? WHERE id = ?", true, transactionID, orderID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete order"})
		return
	}

	// 7. --- Persist the shipping address (physical goods only) ---
	if requiresShipping {
		_, err := tx.Exec(`
			INSERT INTO shipping_addresses (customer_id, order_id, address, city, state, zipcode, country, date_added)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			customerID, orderID, input.Shipping.Address, input.Shipping.City, input.Shipping.State,
			input.Shipping.Zipcode, input.Shipping.Country, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save shipping address"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	// 8. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"message":       "Order placed",
		"orderId":       orderID,
		"transactionId": transactionID,
		"total":         math.Round(serverTotal*100) / 100,
	})
}
