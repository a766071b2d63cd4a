package handlers

import (
	"database/sql"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
)

//
// --- Cart Handlers (Storefront) ---
//

// getOrCreateOrderID finds the customer's open order (the cart) or
// creates one. At most one incomplete order exists per customer.
// This is a helper function to be used within a transaction.
func (h *Handlers) getOrCreateOrderID(db execer, customerID int64) (int64, error) {
	var orderID int64

	// 1. Try to find the open order
	query := "SELECT id FROM orders WHERE customer_id = ? AND complete = ?"
	err := db.QueryRow(query, customerID, false).Scan(&orderID)

	if err == nil {
		return orderID, nil // Found it
	}

	// 2. If no open order exists (sql.ErrNoRows), create one
	if err == sql.ErrNoRows {
		insertQuery := "INSERT INTO orders (customer_id, date_ordered, complete, status) VALUES (?, ?, ?, ?)"
		result, err := db.Exec(insertQuery, customerID, time.Now(), false, "PENDING")
		if err != nil {
			return 0, err
		}
		newOrderID, err := result.LastInsertId()
		if err != nil {
			return 0, err
		}
		return newOrderID, nil
	}

	// 3. A real database error occurred
	return 0, err
}

// CartItemResponse is a helper struct for the GetCart handler
type CartItemResponse struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"` // The selling price (discount applied if lower)
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
	Digital   bool    `json:"digital"`
}

// GetCart is the handler for GET /store/cart
// It retrieves the full contents of the customer's open order.
func (h *Handlers) GetCart(c *gin.Context) {
	// 1. --- Get Customer ID ---
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	customerID, err := h.getOrCreateCustomerID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve customer profile"})
		return
	}

	// 2. --- Find the open order ---
	var orderID int64
	err = h.DB.QueryRow("SELECT id FROM orders WHERE customer_id = ? AND complete = ?", customerID, false).Scan(&orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			// No open order. Return an empty cart response.
			c.JSON(http.StatusOK, gin.H{
				"items":            []CartItemResponse{},
				"total":            0.0,
				"cartItems":        0,
				"requiresShipping": false,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find cart"})
		return
	}

	// 3. --- Query for order items + product details ---
	query := `
		SELECT oi.product_id, p.name, p.price, p.discount_price, oi.quantity, p.digital
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.date_added`
	rows, err := h.DB.Query(query, orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query cart items"})
		return
	}
	defer rows.Close()

	// 4. --- Scan rows and calculate totals ---
	items := []CartItemResponse{}
	var total float64
	var totalItems int
	requiresShipping := false

	for rows.Next() {
		var item CartItemResponse
		var p models.Product

		if err := rows.Scan(&item.ProductID, &item.Name, &p.Price, &p.DiscountPrice, &item.Quantity, &item.Digital); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart item"})
			return
		}

		item.Price = p.SellingPrice()
		item.LineTotal = item.Price * float64(item.Quantity)
		total += item.LineTotal
		totalItems += item.Quantity
		if !item.Digital {
			requiresShipping = true
		}

		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating cart items"})
		return
	}

	// 5. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"items":            items,
		"total":            math.Round(total*100) / 100,
		"cartItems":        totalItems,
		"requiresShipping": requiresShipping,
	})
}

// UpdateItemInput defines the JSON for mutating the cart.
// Action is one of: "add", "remove", "delete", "clear".
type UpdateItemInput struct {
	ProductID int64  `json:"productId"`
	Action    string `json:"action" binding:"required"`
}

// UpdateItem is the handler for POST /store/cart/update
// "add" increments the line by one (creating it at 1), "remove"
// decrements it, "delete" drops the line, "clear" empties the cart.
// A decrement that reaches zero deletes the line.
func (h *Handlers) UpdateItem(c *gin.Context) {
	// 1. --- Get Customer ID ---
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input UpdateItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	switch input.Action {
	case "add", "remove", "delete", "clear":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action (want add, remove, delete or clear)"})
		return
	}
	if input.Action != "clear" && input.ProductID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}

	// 2. --- Open a transaction around the read-modify-write ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction failed"})
		return
	}
	defer tx.Rollback()

	// 3. --- Verify the product before the cart is even touched ---
	// A mutation against an unknown product must not leave a customer
	// profile or an empty order behind.
	var stock int
	if input.Action != "clear" {
		err := tx.QueryRow("SELECT stock_quantity FROM products WHERE id = ?", input.ProductID).Scan(&stock)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
	}

	customerID, err := h.getOrCreateCustomerID(tx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve customer profile"})
		return
	}

	orderID, err := h.getOrCreateOrderID(tx, customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cart initialization failed"})
		return
	}

	if input.Action == "clear" {
		if _, err := tx.Exec("DELETE FROM order_items WHERE order_id = ?", orderID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
	} else if input.Action == "delete" {
		if _, err := tx.Exec("DELETE FROM order_items WHERE order_id = ? AND product_id = ?", orderID, input.ProductID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
			return
		}
	} else {
		// 4. --- Resolve the current line quantity ---
		var quantity int
		err = tx.QueryRow("SELECT quantity FROM order_items WHERE order_id = ? AND product_id = ?", orderID, input.ProductID).Scan(&quantity)
		if err != nil && err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read cart item"})
			return
		}
		lineExists := err == nil

		if input.Action == "add" {
			// Stock must cover what is already in the cart plus one more.
			if stock < quantity+1 {
				c.JSON(http.StatusConflict, gin.H{"error": "Insufficient stock"})
				return
			}
			quantity++
		} else {
			quantity--
		}

		// 5. --- Write the new quantity; zero or less deletes the line ---
		if quantity <= 0 {
			if _, err := tx.Exec("DELETE FROM order_items WHERE order_id = ? AND product_id = ?", orderID, input.ProductID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
				return
			}
		} else if lineExists {
			if _, err := tx.Exec("UPDATE order_items SET quantity = ? WHERE order_id = ? AND product_id = ?", quantity, orderID, input.ProductID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
				return
			}
		} else {
			if _, err := tx.Exec("INSERT INTO order_items (order_id, product_id, quantity, date_added) VALUES (?, ?, ?, ?)", orderID, input.ProductID, quantity, time.Now()); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item"})
				return
			}
		}
	}

	// 6. --- Recount the badge inside the same transaction ---
	var totalItems int
	if err := tx.QueryRow("SELECT COALESCE(SUM(quantity), 0) FROM order_items WHERE order_id = ?", orderID).Scan(&totalItems); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count cart items"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	// 7. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"message":   "Cart updated",
		"cartItems": totalItems,
	})
}
