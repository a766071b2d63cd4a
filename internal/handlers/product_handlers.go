package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
)

//
// --- Product Handlers ---
//

// loadProductImages fetches the image rows for one product, oldest first,
// and fills in public URLs.
func (h *Handlers) loadProductImages(productID int64) ([]models.ProductImage, error) {
	rows, err := h.DB.Query(`
		SELECT id, product_id, file_name, date_uploaded
		FROM product_images
		WHERE product_id = ?
		ORDER BY date_uploaded, id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []models.ProductImage{}
	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.FileName, &img.DateUploaded); err != nil {
			return nil, err
		}
		img.URL = h.Store.URL(img.FileName)
		images = append(images, img)
	}
	return images, rows.Err()
}

// loadProductCategories fetches the categories linked to one product.
func (h *Handlers) loadProductCategories(productID int64) ([]models.Category, error) {
	rows, err := h.DB.Query(`
		SELECT c.id, c.name, c.slug, c.description, c.display_order, c.created_at
		FROM categories c
		JOIN product_categories pc ON pc.category_id = c.id
		WHERE pc.product_id = ?
		ORDER BY c.display_order, c.name`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.DisplayOrder, &cat.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

func scanProduct(row interface{ Scan(dest ...any) error }, p *models.Product) error {
	var discountPrice sql.NullFloat64
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &discountPrice, &p.StockQuantity, &p.Digital, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	if discountPrice.Valid {
		p.DiscountPrice = &discountPrice.Float64
	}
	return nil
}

const productColumns = "id, name, description, price, discount_price, stock_quantity, digital, created_at, updated_at"

// GetProducts is the handler for GET /store/products
// Supports ?category=<slug> and ?q=<keyword> filters.
func (h *Handlers) GetProducts(c *gin.Context) {
	// 1. --- Build the filtered query ---
	query := `
		SELECT p.id, p.name, p.description, p.price, p.discount_price, p.stock_quantity, p.digital, p.created_at, p.updated_at
		FROM products p
		WHERE 1=1`
	args := []any{}

	if slugParam := c.Query("category"); slugParam != "" {
		query = `
			SELECT p.id, p.name, p.description, p.price, p.discount_price, p.stock_quantity, p.digital, p.created_at, p.updated_at
			FROM products p
			JOIN product_categories pc ON pc.product_id = p.id
			JOIN categories c ON c.id = pc.category_id
			WHERE c.slug = ?`
		args = append(args, slugParam)
	}

	if keyword := c.Query("q"); keyword != "" {
		query += " AND LOWER(p.name) LIKE ?"
		args = append(args, "%"+strings.ToLower(keyword)+"%")
	}

	query += " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query products"})
		return
	}
	defer rows.Close()

	// 2. --- Scan rows ---
	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating products"})
		return
	}

	// 3. --- Attach images (the storefront grid shows the first one) ---
	for i := range products {
		images, err := h.loadProductImages(products[i].ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load product images"})
			return
		}
		products[i].Images = images
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProductByID is the handler for GET /store/products/:id
func (h *Handlers) GetProductByID(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var p models.Product
	row := h.DB.QueryRow("SELECT "+productColumns+" FROM products WHERE id = ?", productID)
	if err := scanProduct(row, &p); err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query product"})
		return
	}

	if p.Images, err = h.loadProductImages(p.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load product images"})
		return
	}
	if p.Categories, err = h.loadProductCategories(p.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load product categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": p})
}

// --- Inputs ---

type CreateProductInput struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Price         float64  `json:"price" binding:"gte=0"`
	DiscountPrice *float64 `json:"discountPrice" binding:"omitempty,gte=0"`
	Stock         int      `json:"stock" binding:"gte=0"`
	Digital       bool     `json:"digital"`
	CategoryIDs   []int64  `json:"categoryIds"`
}

// CreateProduct is the handler for POST /portal/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input CreateProductInput
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

	now := time.Now()
	result, err := tx.Exec(`
		INSERT INTO products (name, description, price, discount_price, stock_quantity, digital, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Name, input.Description, input.Price, input.DiscountPrice, input.Stock, input.Digital, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	productID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read new product ID"})
		return
	}

	// Link categories
	for _, catID := range input.CategoryIDs {
		if _, err := tx.Exec("INSERT INTO product_categories (product_id, category_id) VALUES (?, ?)", productID, catID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
			return
		}
	}

	logActivity(tx, &userID, models.ActionProductAdded,
		fmt.Sprintf("Product '%s' added with stock %d.", input.Name, input.Stock),
		&productID, input.Name)

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Product created", "productId": productID})
}

type UpdateProductInput struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Price         float64  `json:"price" binding:"gte=0"`
	DiscountPrice *float64 `json:"discountPrice" binding:"omitempty,gte=0"`
	Stock         int      `json:"stock" binding:"gte=0"`
	Digital       bool     `json:"digital"`
	CategoryIDs   []int64  `json:"categoryIds"`
}

// UpdateProduct is the handler for PUT /portal/products/:id
// Each field that actually changed gets its own ledger entry with a
// specific action type; anything else that changed falls through to a
// single PRODUCT_UPDATED entry, so no edit escapes the ledger.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var input UpdateProductInput
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

	// 1. --- Load the current row to diff against ---
	var old models.Product
	row := tx.QueryRow("SELECT "+productColumns+" FROM products WHERE id = ?", productID)
	if err := scanProduct(row, &old); err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query product"})
		return
	}

	// 2. --- Write the new state ---
	_, err = tx.Exec(`
		UPDATE products
		SET name = ?, description = ?, price = ?, discount_price = ?, stock_quantity = ?, digital = ?, updated_at = ?
		WHERE id = ?`,
		input.Name, input.Description, input.Price, input.DiscountPrice, input.Stock, input.Digital, time.Now(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}

	// Re-link categories
	if input.CategoryIDs != nil {
		if _, err := tx.Exec("DELETE FROM product_categories WHERE product_id = ?", productID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update categories"})
			return
		}
		for _, catID := range input.CategoryIDs {
			if _, err := tx.Exec("INSERT INTO product_categories (product_id, category_id) VALUES (?, ?)", productID, catID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
				return
			}
		}
	}

	// 3. --- Diff the meaningful fields into ledger entries ---
	logged := false

	if input.Stock != old.StockQuantity {
		logActivity(tx, &userID, models.ActionStockUpdated,
			fmt.Sprintf("Stock for '%s' changed from %d to %d.", input.Name, old.StockQuantity, input.Stock),
			&productID, input.Name)
		logged = true
	}

	if input.Price != old.Price {
		logActivity(tx, &userID, models.ActionPriceUpdated,
			fmt.Sprintf("Price for '%s' changed from %.2f to %.2f.", input.Name, old.Price, input.Price),
			&productID, input.Name)
		logged = true
	}

	oldDiscount := old.DiscountPrice
	newDiscount := input.DiscountPrice
	switch {
	case oldDiscount == nil && newDiscount != nil:
		logActivity(tx, &userID, models.ActionDiscountApplied,
			fmt.Sprintf("Discount of %.2f applied to '%s'.", *newDiscount, input.Name),
			&productID, input.Name)
		logged = true
	case oldDiscount != nil && newDiscount == nil:
		logActivity(tx, &userID, models.ActionDiscountRemoved,
			fmt.Sprintf("Discount removed from '%s'.", input.Name),
			&productID, input.Name)
		logged = true
	case oldDiscount != nil && newDiscount != nil && *oldDiscount != *newDiscount:
		logActivity(tx, &userID, models.ActionDiscountApplied,
			fmt.Sprintf("Discount for '%s' changed from %.2f to %.2f.", input.Name, *oldDiscount, *newDiscount),
			&productID, input.Name)
		logged = true
	}

	if !logged {
		logActivity(tx, &userID, models.ActionProductUpdated,
			fmt.Sprintf("Product '%s' updated.", input.Name),
			&productID, input.Name)
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product updated"})
}

// DeleteProduct is the handler for DELETE /portal/products/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	// Snapshot the name for the ledger before the row disappears.
	var name string
	err = h.DB.QueryRow("SELECT name FROM products WHERE id = ?", productID).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query product"})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM products WHERE id = ?", productID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	logActivity(h.DB, &userID, models.ActionProductDeleted,
		fmt.Sprintf("Product '%s' deleted.", name),
		&productID, name)

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// UploadProductImage is the handler for POST /portal/products/:id/images
// It saves the file through the media store and links it to the product.
func (h *Handlers) UploadProductImage(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var exists bool
	if err := h.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)", productID).Scan(&exists); err != nil || !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	fileName, err := h.Store.Save(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	result, err := h.DB.Exec("INSERT INTO product_images (product_id, file_name, date_uploaded) VALUES (?, ?, ?)",
		productID, fileName, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record image"})
		return
	}
	imageID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"imageId": imageID,
		"url":     h.Store.URL(fileName),
	})
}

// DeleteProductImage is the handler for DELETE /portal/products/:id/images/:image_id
func (h *Handlers) DeleteProductImage(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	imageID, err := strconv.ParseInt(c.Param("image_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID"})
		return
	}

	var fileName string
	err = h.DB.QueryRow("SELECT file_name FROM product_images WHERE id = ? AND product_id = ?", imageID, productID).Scan(&fileName)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query image"})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM product_images WHERE id = ?", imageID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
		return
	}

	// Best effort: a leftover file on disk is harmless.
	_ = h.Store.Remove(fileName)

	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}
