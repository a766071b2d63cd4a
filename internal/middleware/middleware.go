package middleware

import (
	"database/sql"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/auth"
)

// AuthMiddleware creates a gin.HandlerFunc that acts as our "security guard".
// Every protected route sits behind it; it puts the caller's userID into
// the request context for handlers to read.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}
		tokenString := parts[1]

		// 2. --- Validate Token ---
		userID, err := auth.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// 3. --- Success ---
		c.Set("userID", userID)
		c.Next()
	}
}

// OptionalAuthMiddleware sets 'userID' when a valid Bearer token is present
// but never rejects the request. Service requests can be submitted by
// guests, so their routes use this instead of the hard guard.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				if userID, err := auth.ValidateToken(parts[1]); err == nil {
					c.Set("userID", userID)
				}
			}
		}
		c.Next()
	}
}

// StaffMiddleware is designed to be USED *AFTER* AuthMiddleware().
// It reads 'userID' from the context, queries the DB for the account's
// staff flags, and enforces them. A caller who fails the gate is
// redirected to the portal login with the original path preserved in
// 'next', so the browser lands back where it wanted to go after signing in.
func StaffMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		redirect := func() {
			next := url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, "/portal/login?next="+next)
			c.Abort()
		}

		// 1. Get userID from AuthMiddleware
		userIDRaw, exists := c.Get("userID")
		if !exists {
			redirect()
			return
		}
		userID := userIDRaw.(int64)

		// 2. Query DB for the account's flags. The check happens on every
		// request, so revoking is_staff locks the account out immediately.
		var isStaff, isActive bool
		err := db.QueryRow("SELECT is_staff, is_active FROM users WHERE id = ?", userID).Scan(&isStaff, &isActive)
		if err != nil {
			redirect()
			return
		}

		// 3. Check permission
		if !isStaff || !isActive {
			redirect()
			return
		}

		// 4. Success! Proceed.
		c.Next()
	}
}

// PortalGateMiddleware behaves like AuthMiddleware but answers a failed
// check with the portal login redirect instead of a JSON 401. It is the
// first half of the /portal chain, ahead of StaffMiddleware.
func PortalGateMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		redirect := func() {
			next := url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, "/portal/login?next="+next)
			c.Abort()
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			redirect()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			redirect()
			return
		}

		userID, err := auth.ValidateToken(parts[1])
		if err != nil {
			redirect()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
