package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryCRUD(t *testing.T) {
	t.Run("create slugs the name and appends to the order", func(t *testing.T) {
		app := setupTestApp(t)
		_, staffToken := app.createUser(t, "staff", true)

		w := app.doJSON(t, "POST", "/portal/categories", staffToken, map[string]any{
			"name":        "Camera Gear",
			"description": "Bodies, lenses and accessories",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "POST", "/portal/categories", staffToken, map[string]any{
			"name": "Print Services",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "GET", "/store/categories", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Categories []struct {
				Name         string `json:"name"`
				Slug         string `json:"slug"`
				DisplayOrder int    `json:"displayOrder"`
			} `json:"categories"`
		}
		decodeJSON(t, w, &resp)
		require.Len(t, resp.Categories, 2)
		assert.Equal(t, "camera-gear", resp.Categories[0].Slug)
		assert.Equal(t, 1, resp.Categories[0].DisplayOrder)
		assert.Equal(t, 2, resp.Categories[1].DisplayOrder)
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		app := setupTestApp(t)
		_, staffToken := app.createUser(t, "staff", true)

		w := app.doJSON(t, "POST", "/portal/categories", staffToken, map[string]any{"name": "Camera Gear"})
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "POST", "/portal/categories", staffToken, map[string]any{"name": "Camera Gear"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("move swaps display order with the neighbor", func(t *testing.T) {
		app := setupTestApp(t)
		_, staffToken := app.createUser(t, "staff", true)

		for _, name := range []string{"First", "Second", "Third"} {
			w := app.doJSON(t, "POST", "/portal/categories", staffToken, map[string]any{"name": name})
			require.Equal(t, http.StatusCreated, w.Code)
		}

		// Move "Third" up one slot.
		w := app.doJSON(t, "POST", "/portal/categories/3/move", staffToken, map[string]any{"direction": "up"})
		require.Equal(t, http.StatusOK, w.Code)

		w = app.doJSON(t, "GET", "/store/categories", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Categories []struct {
				Name string `json:"name"`
			} `json:"categories"`
		}
		decodeJSON(t, w, &resp)
		require.Len(t, resp.Categories, 3)
		assert.Equal(t, "First", resp.Categories[0].Name)
		assert.Equal(t, "Third", resp.Categories[1].Name)
		assert.Equal(t, "Second", resp.Categories[2].Name)

		// Moving the top category up is a no-op, not an error.
		w = app.doJSON(t, "POST", "/portal/categories/1/move", staffToken, map[string]any{"direction": "up"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("category filter narrows the product list", func(t *testing.T) {
		app := setupTestApp(t)
		_, staffToken := app.createUser(t, "staff", true)

		w := app.doJSON(t, "POST", "/portal/categories", staffToken, map[string]any{"name": "Camera Gear"})
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "POST", "/portal/products", staffToken, map[string]any{
			"name":        "Mirrorless Body",
			"price":       1899.00,
			"stock":       4,
			"categoryIds": []int64{1},
		})
		require.Equal(t, http.StatusCreated, w.Code)
		app.createProduct(t, "Unfiled Product", 5.00, nil, 1, false)

		w = app.doJSON(t, "GET", "/store/products?category=camera-gear", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Products []struct {
				Name string `json:"name"`
			} `json:"products"`
		}
		decodeJSON(t, w, &resp)
		require.Len(t, resp.Products, 1)
		assert.Equal(t, "Mirrorless Body", resp.Products[0].Name)
	})

	t.Run("deleting a category leaves its products alone", func(t *testing.T) {
		app := setupTestApp(t)
		_, staffToken := app.createUser(t, "staff", true)

		w := app.doJSON(t, "POST", "/portal/categories", staffToken, map[string]any{"name": "Camera Gear"})
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "POST", "/portal/products", staffToken, map[string]any{
			"name":        "Mirrorless Body",
			"price":       1899.00,
			"stock":       4,
			"categoryIds": []int64{1},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "DELETE", "/portal/categories/1", staffToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var productCount int
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM products").Scan(&productCount))
		assert.Equal(t, 1, productCount)

		var linkCount int
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM product_categories").Scan(&linkCount))
		assert.Zero(t, linkCount)
	})
}
