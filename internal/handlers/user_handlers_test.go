package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	t.Run("register then log in", func(t *testing.T) {
		app := setupTestApp(t)

		w := app.doJSON(t, "POST", "/register", "", map[string]any{
			"username": "ana",
			"email":    "ana@example.com",
			"password": "correct-horse-battery",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "POST", "/login", "", map[string]any{
			"username": "ana",
			"password": "correct-horse-battery",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Token string `json:"token"`
			User  struct {
				Username string `json:"username"`
				IsStaff  bool   `json:"isStaff"`
			} `json:"user"`
		}
		decodeJSON(t, w, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "ana", resp.User.Username)
		assert.False(t, resp.User.IsStaff)

		// The token works against a protected route.
		w = app.doJSON(t, "GET", "/store/cart", resp.Token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong password and unknown user look identical", func(t *testing.T) {
		app := setupTestApp(t)
		app.createUser(t, "ana", false)

		wrong := app.doJSON(t, "POST", "/login", "", map[string]any{
			"username": "ana",
			"password": "nope",
		})
		unknown := app.doJSON(t, "POST", "/login", "", map[string]any{
			"username": "ghost",
			"password": "nope",
		})

		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		app := setupTestApp(t)
		app.createUser(t, "ana", false)

		w := app.doJSON(t, "POST", "/register", "", map[string]any{
			"username": "ana",
			"email":    "second@example.com",
			"password": "correct-horse-battery",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPortalLogin(t *testing.T) {
	t.Run("staff login lands on the ledger and echoes next", func(t *testing.T) {
		app := setupTestApp(t)
		app.createUser(t, "staff", true)

		w := app.doJSON(t, "POST", "/portal/login?next=/portal/activity", "", map[string]any{
			"username": "staff",
			"password": "test-password-123",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Token string `json:"token"`
			Next  string `json:"next"`
		}
		decodeJSON(t, w, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "/portal/activity", resp.Next)

		var description string
		require.NoError(t, app.DB.QueryRow("SELECT description FROM activity_logs WHERE action_type = 'STAFF_LOGIN'").Scan(&description))
		assert.Equal(t, "Staff member 'staff' logged in to the portal.", description)
	})

	t.Run("non-staff accounts are refused", func(t *testing.T) {
		app := setupTestApp(t)
		app.createUser(t, "ana", false)

		w := app.doJSON(t, "POST", "/portal/login", "", map[string]any{
			"username": "ana",
			"password": "test-password-123",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)

		var ledgerCount int
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM activity_logs").Scan(&ledgerCount))
		assert.Zero(t, ledgerCount)
	})

	t.Run("disabled staff accounts are refused", func(t *testing.T) {
		app := setupTestApp(t)
		app.createUser(t, "staff", true)
		_, err := app.DB.Exec("UPDATE users SET is_active = 0 WHERE username = 'staff'")
		require.NoError(t, err)

		w := app.doJSON(t, "POST", "/portal/login", "", map[string]any{
			"username": "staff",
			"password": "test-password-123",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("default next is the dashboard", func(t *testing.T) {
		app := setupTestApp(t)
		app.createUser(t, "staff", true)

		w := app.doJSON(t, "POST", "/portal/login", "", map[string]any{
			"username": "staff",
			"password": "test-password-123",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Next string `json:"next"`
		}
		decodeJSON(t, w, &resp)
		assert.Equal(t, "/portal/dashboard", resp.Next)
	})
}
