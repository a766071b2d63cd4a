package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/auth"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
)

//
// --- User Registration & Login ---
//

// RegisterUserInput holds the *input* from the user. This is separate
// from models.User because we don't want to accept an 'id' or staff
// flags from the outside.
type RegisterUserInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register is the handler for POST /register
// Accounts created here are plain customers; staff flags are only ever
// set by an operator on the database.
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	// 3. --- Save to Database ---
	result, err := h.DB.Exec(`
		INSERT INTO users (username, email, password_hash, is_staff, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		input.Username, input.Email, password.Hash, false, true, time.Now())
	if err != nil {
		// The unique constraints on username and email are the source
		// of truth; we just translate the failure.
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already taken"})
		return
	}

	userID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read new user ID"})
		return
	}

	// 4. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created",
		"userId":  userID,
	})
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// lookupUserForLogin loads the fields login needs, by username.
func (h *Handlers) lookupUserForLogin(username string) (*models.User, error) {
	var user models.User
	err := h.DB.QueryRow(`
		SELECT id, username, email, password_hash, is_staff, is_active
		FROM users
		WHERE username = ?`, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsStaff, &user.IsActive)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login is the handler for POST /login
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Look up the account ---
	user, err := h.lookupUserForLogin(input.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			// Same message as a bad password, so usernames can't be probed.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// 3. --- Check the password ---
	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	// 4. --- Generate the token ---
	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"isStaff":  user.IsStaff,
		},
	})
}

// PortalLogin is the handler for POST /portal/login
// Same credential check as Login, but only staff accounts get through,
// every successful entry lands in the activity ledger, and the 'next'
// query parameter is echoed back so the frontend can resume the page
// the staff member was headed to.
func (h *Handlers) PortalLogin(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.lookupUserForLogin(input.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	if !user.IsStaff || !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Staff access required"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	logActivity(h.DB, &user.ID, models.ActionStaffLogin,
		fmt.Sprintf("Staff member '%s' logged in to the portal.", user.Username),
		&user.ID, user.Username)

	next := c.Query("next")
	if next == "" {
		next = "/portal/dashboard"
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"next":  next,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"isStaff":  user.IsStaff,
		},
	})
}
