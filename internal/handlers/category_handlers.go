package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
)

//
// --- Category Handlers ---
//

// GetAllCategories is the handler for GET /store/categories
// Ordered by display_order, which the portal's move operation controls.
func (h *Handlers) GetAllCategories(c *gin.Context) {
	rows, err := h.DB.Query(`
		SELECT id, name, slug, description, display_order, created_at
		FROM categories
		ORDER BY display_order, name`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query categories"})
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.DisplayOrder, &cat.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan category"})
			return
		}
		categories = append(categories, cat)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type CreateCategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateCategory is the handler for POST /portal/categories
// New categories go to the end of the display order.
func (h *Handlers) CreateCategory(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input CreateCategoryInput
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

	var maxOrder int
	if err := tx.QueryRow("SELECT COALESCE(MAX(display_order), 0) FROM categories").Scan(&maxOrder); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read display order"})
		return
	}

	result, err := tx.Exec(`
		INSERT INTO categories (name, slug, description, display_order, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		input.Name, slug.Make(input.Name), input.Description, maxOrder+1, time.Now())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Category name already exists"})
		return
	}

	categoryID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read new category ID"})
		return
	}

	logActivity(tx, &userID, models.ActionCategoryAdded,
		fmt.Sprintf("Category '%s' added.", input.Name),
		&categoryID, input.Name)

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Category created", "categoryId": categoryID})
}

type UpdateCategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateCategory is the handler for PUT /portal/categories/:id
// Renaming regenerates the slug.
func (h *Handlers) UpdateCategory(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	categoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	var input UpdateCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec("UPDATE categories SET name = ?, slug = ?, description = ? WHERE id = ?",
		input.Name, slug.Make(input.Name), input.Description, categoryID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Category name already exists"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	logActivity(h.DB, &userID, models.ActionCategoryUpdated,
		fmt.Sprintf("Category '%s' updated.", input.Name),
		&categoryID, input.Name)

	c.JSON(http.StatusOK, gin.H{"message": "Category updated"})
}

// DeleteCategory is the handler for DELETE /portal/categories/:id
// Products linked to the category survive; only the link rows go.
func (h *Handlers) DeleteCategory(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	categoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	var name string
	err = h.DB.QueryRow("SELECT name FROM categories WHERE id = ?", categoryID).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query category"})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM categories WHERE id = ?", categoryID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}

	logActivity(h.DB, &userID, models.ActionCategoryDeleted,
		fmt.Sprintf("Category '%s' deleted.", name),
		&categoryID, name)

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

type MoveCategoryInput struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// MoveCategory is the handler for POST /portal/categories/:id/move
// It swaps display_order with the nearest neighbor in the chosen
// direction. Moving past either end is a silent no-op.
func (h *Handlers) MoveCategory(c *gin.Context) {
	categoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	var input MoveCategoryInput
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

	var currentOrder int
	err = tx.QueryRow("SELECT display_order FROM categories WHERE id = ?", categoryID).Scan(&currentOrder)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query category"})
		return
	}

	// Find the neighbor to swap with.
	var neighborID int64
	var neighborOrder int
	if input.Direction == "up" {
		err = tx.QueryRow(`
			SELECT id, display_order FROM categories
			WHERE display_order < ?
			ORDER BY display_order DESC
			LIMIT 1`, currentOrder).Scan(&neighborID, &neighborOrder)
	} else {
		err = tx.QueryRow(`
			SELECT id, display_order FROM categories
			WHERE display_order > ?
			ORDER BY display_order ASC
			LIMIT 1`, currentOrder).Scan(&neighborID, &neighborOrder)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			// Already at the edge.
			c.JSON(http.StatusOK, gin.H{"message": "Category order unchanged"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find neighbor"})
		return
	}

	if _, err := tx.Exec("UPDATE categories SET display_order = ? WHERE id = ?", neighborOrder, categoryID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to move category"})
		return
	}
	if _, err := tx.Exec("UPDATE categories SET display_order = ? WHERE id = ?", currentOrder, neighborID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to move category"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category order updated"})
}
