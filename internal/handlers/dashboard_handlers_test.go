package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDashboardStats(t *testing.T) {
	app := setupTestApp(t)
	_, staffToken := app.createUser(t, "staff", true)
	_, anaToken := app.createUser(t, "ana", false)

	bestseller := app.createProduct(t, "Film Roll", 10.00, nil, 20, false)
	app.createProduct(t, "Lens Cloth", 3.00, nil, 2, false)

	placeOrder(t, app, anaToken, bestseller, 3, 30.00)

	// Multipart submit is covered elsewhere; seed the request directly.
	_, err := app.DB.Exec(`
		INSERT INTO service_requests (customer_name, contact_email, service_type, description, date_requested, status)
		VALUES ('Ana', 'ana@example.com', 'Repair', 'Shutter jam', CURRENT_TIMESTAMP, 'PENDING')`)
	require.NoError(t, err)

	resp := app.doJSON(t, "GET", "/portal/dashboard", staffToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var stats struct {
		ProductCount  int `json:"productCount"`
		PendingOrders int `json:"pendingOrders"`
		OpenRequests  int `json:"openRequests"`
		LowStock      []struct {
			Name  string `json:"name"`
			Stock int    `json:"stock"`
		} `json:"lowStock"`
		TopSellers []struct {
			Name      string `json:"name"`
			UnitsSold int    `json:"unitsSold"`
		} `json:"topSellers"`
		RecentActivity []struct {
			ActionType string `json:"actionType"`
		} `json:"recentActivity"`
	}
	decodeJSON(t, resp, &stats)

	assert.Equal(t, 2, stats.ProductCount)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 1, stats.OpenRequests)

	require.Len(t, stats.LowStock, 1)
	assert.Equal(t, "Lens Cloth", stats.LowStock[0].Name)

	require.Len(t, stats.TopSellers, 1)
	assert.Equal(t, "Film Roll", stats.TopSellers[0].Name)
	assert.Equal(t, 3, stats.TopSellers[0].UnitsSold)

	// Checkout wrote to the ledger, so the feed is not empty.
	require.NotEmpty(t, stats.RecentActivity)
	assert.Equal(t, "ORDER_COMPLETED", stats.RecentActivity[0].ActionType)
}
