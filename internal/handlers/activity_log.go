package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
)

//
// --- Activity Ledger ---
//

// logActivity appends one row to the ledger. It accepts either the main
// pool or an open transaction, so checkout can log inside its tx.
// Ledger failures are logged and swallowed: an audit write must never
// take down the operation it describes.
func logActivity(db execer, userID *int64, actionType string, description string, objectID *int64, objectRepr string) {
	var repr *string
	if objectRepr != "" {
		repr = &objectRepr
	}

	_, err := db.Exec(`
		INSERT INTO activity_logs (user_id, action_time, action_type, description, object_id, object_repr)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, time.Now(), actionType, description, objectID, repr)
	if err != nil {
		log.Warn().Err(err).Str("actionType", actionType).Msg("failed to write activity log")
	}
}

// GetActivityLogs is the handler for GET /portal/activity
// Supports filtering by inclusive date range, action type, and a keyword
// matched against the description and the acting user's name.
func (h *Handlers) GetActivityLogs(c *gin.Context) {
	// 1. --- Build the filtered query ---
	query := `
		SELECT a.id, a.user_id, COALESCE(u.username, ''), a.action_time, a.action_type, a.description, a.object_id, a.object_repr
		FROM activity_logs a
		LEFT JOIN users u ON a.user_id = u.id
		WHERE 1=1`
	args := []any{}

	if from := c.Query("start_date"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date (want YYYY-MM-DD)"})
			return
		}
		query += " AND a.action_time >= ?"
		args = append(args, t)
	}

	if to := c.Query("end_date"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date (want YYYY-MM-DD)"})
			return
		}
		// Inclusive: push the bound to the start of the next day.
		query += " AND a.action_time < ?"
		args = append(args, t.AddDate(0, 0, 1))
	}

	if actionType := c.Query("action_type"); actionType != "" {
		query += " AND a.action_type = ?"
		args = append(args, actionType)
	}

	if keyword := c.Query("keyword"); keyword != "" {
		query += " AND (LOWER(a.description) LIKE ? OR LOWER(COALESCE(u.username, '')) LIKE ?)"
		pattern := "%" + strings.ToLower(keyword) + "%"
		args = append(args, pattern, pattern)
	}

	query += " ORDER BY a.action_time DESC, a.id DESC"

	// 2. --- Run it ---
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query activity logs"})
		return
	}
	defer rows.Close()

	// 3. --- Scan rows ---
	logs := []models.ActivityLog{}
	for rows.Next() {
		var entry models.ActivityLog
		var userID sql.NullInt64
		var objectID sql.NullInt64
		var objectRepr sql.NullString

		if err := rows.Scan(&entry.ID, &userID, &entry.Username, &entry.ActionTime, &entry.ActionType, &entry.Description, &objectID, &objectRepr); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan activity log"})
			return
		}
		if userID.Valid {
			entry.UserID = &userID.Int64
		}
		if objectID.Valid {
			entry.ObjectID = &objectID.Int64
		}
		if objectRepr.Valid {
			entry.ObjectRepr = &objectRepr.String
		}

		logs = append(logs, entry)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating activity logs"})
		return
	}

	// 4. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{"activity": logs})
}
