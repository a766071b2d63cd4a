package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/notify"
)

//
// --- Service Request Handlers ---
//

// maxAttachments caps uploads per request.
const maxAttachments = 4

// ServiceRequestResponse is a request with its attachments.
type ServiceRequestResponse struct {
	models.ServiceRequest
	StatusLabel string                     `json:"statusLabel"`
	Attachments []models.ServiceAttachment `json:"attachments"`
}

// loadAttachments fetches the attachment rows for one request.
func (h *Handlers) loadAttachments(requestID int64) ([]models.ServiceAttachment, error) {
	rows, err := h.DB.Query("SELECT id, request_id, file_name FROM service_attachments WHERE request_id = ? ORDER BY id", requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := []models.ServiceAttachment{}
	for rows.Next() {
		var a models.ServiceAttachment
		if err := rows.Scan(&a.ID, &a.RequestID, &a.FileName); err != nil {
			return nil, err
		}
		a.URL = h.Store.URL(a.FileName)
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// SubmitRequest is the handler for POST /services/requests
// Guests can submit; a logged-in customer gets the request linked to
// their profile. The form is multipart so attachments ride along.
func (h *Handlers) SubmitRequest(c *gin.Context) {
	// 1. --- Read the form fields ---
	customerName := c.PostForm("customer_name")
	contactEmail := c.PostForm("contact_email")
	serviceType := c.PostForm("service_type")
	description := c.PostForm("description")

	if customerName == "" || contactEmail == "" || serviceType == "" || description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer_name, contact_email, service_type and description are required"})
		return
	}

	// 2. --- Enforce the attachment cap before saving anything ---
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form"})
		return
	}
	files := form.File["attachments"]
	if len(files) > maxAttachments {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("At most %d attachments allowed", maxAttachments)})
		return
	}

	// 3. --- Link the request to a profile when the caller is logged in ---
	var customerID *int64
	if userIDRaw, exists := c.Get("userID"); exists {
		id, err := h.getOrCreateCustomerID(h.DB, userIDRaw.(int64))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve customer profile"})
			return
		}
		customerID = &id
	}

	// 4. --- Create the request ---
	result, err := h.DB.Exec(`
		INSERT INTO service_requests (customer_id, customer_name, contact_email, service_type, description, date_requested, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		customerID, customerName, contactEmail, serviceType, description, time.Now(), models.RequestStatusPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create service request"})
		return
	}
	requestID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read new request ID"})
		return
	}

	// 5. --- Save the attachments ---
	// The request already exists at this point; storage trouble must not
	// turn a successful submission into an error response. Failures are
	// logged and the submission goes through without the file.
	for _, file := range files {
		fileName, err := h.Store.Save(file)
		if err != nil {
			log.Error().Err(err).Int64("requestId", requestID).Str("file", file.Filename).Msg("failed to save attachment")
			continue
		}
		if _, err := h.DB.Exec("INSERT INTO service_attachments (request_id, file_name) VALUES (?, ?)", requestID, fileName); err != nil {
			log.Error().Err(err).Int64("requestId", requestID).Str("file", fileName).Msg("failed to record attachment")
		}
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Service request submitted", "requestId": requestID})
}

// GetMyRequests is the handler for GET /services/my-requests
func (h *Handlers) GetMyRequests(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	customerID, err := h.getOrCreateCustomerID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve customer profile"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, customer_id, customer_name, contact_email, service_type, description, date_requested, status
		FROM service_requests
		WHERE customer_id = ?
		ORDER BY date_requested DESC, id DESC`, customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query service requests"})
		return
	}
	defer rows.Close()

	requests, err := h.scanRequests(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan service requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetAllRequests is the handler for GET /portal/requests
// Staff see everything; ?status= narrows the list.
func (h *Handlers) GetAllRequests(c *gin.Context) {
	query := `
		SELECT id, customer_id, customer_name, contact_email, service_type, description, date_requested, status
		FROM service_requests
		WHERE 1=1`
	args := []any{}

	if status := c.Query("status"); status != "" {
		if !models.ValidRequestStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown request status"})
			return
		}
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY date_requested DESC, id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query service requests"})
		return
	}
	defer rows.Close()

	requests, err := h.scanRequests(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan service requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *Handlers) scanRequests(rows *sql.Rows) ([]ServiceRequestResponse, error) {
	requests := []ServiceRequestResponse{}
	for rows.Next() {
		var r ServiceRequestResponse
		var customerID sql.NullInt64
		if err := rows.Scan(&r.ID, &customerID, &r.CustomerName, &r.ContactEmail, &r.ServiceType, &r.Description, &r.DateRequested, &r.Status); err != nil {
			return nil, err
		}
		if customerID.Valid {
			r.CustomerID = &customerID.Int64
		}
		r.StatusLabel = models.RequestStatusLabels[r.Status]
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range requests {
		attachments, err := h.loadAttachments(requests[i].ID)
		if err != nil {
			return nil, err
		}
		requests[i].Attachments = attachments
	}
	return requests, nil
}

// loadRequest fetches one request row.
func (h *Handlers) loadRequest(requestID int64) (*ServiceRequestResponse, error) {
	var r ServiceRequestResponse
	var customerID sql.NullInt64
	err := h.DB.QueryRow(`
		SELECT id, customer_id, customer_name, contact_email, service_type, description, date_requested, status
		FROM service_requests
		WHERE id = ?`, requestID).Scan(&r.ID, &customerID, &r.CustomerName, &r.ContactEmail, &r.ServiceType, &r.Description, &r.DateRequested, &r.Status)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		r.CustomerID = &customerID.Int64
	}
	r.StatusLabel = models.RequestStatusLabels[r.Status]

	if r.Attachments, err = h.loadAttachments(r.ID); err != nil {
		return nil, err
	}
	return &r, nil
}

// loadMessages fetches a request's chat thread, oldest first.
func (h *Handlers) loadMessages(requestID int64) ([]models.QuoteMessage, error) {
	rows, err := h.DB.Query(`
		SELECT id, request_id, user_id, sender, message, timestamp
		FROM quote_messages
		WHERE request_id = ?
		ORDER BY timestamp, id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.QuoteMessage{}
	for rows.Next() {
		var m models.QuoteMessage
		var userID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.RequestID, &userID, &m.Sender, &m.Message, &m.Timestamp); err != nil {
			return nil, err
		}
		if userID.Valid {
			m.UserID = &userID.Int64
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ownsRequest reports whether the request belongs to this user's
// customer profile.
func (h *Handlers) ownsRequest(requestID int64, userID int64) (bool, error) {
	var owner sql.NullInt64
	err := h.DB.QueryRow("SELECT customer_id FROM service_requests WHERE id = ?", requestID).Scan(&owner)
	if err != nil {
		return false, err
	}
	if !owner.Valid {
		return false, nil
	}

	var customerID int64
	err = h.DB.QueryRow("SELECT id FROM customers WHERE user_id = ?", userID).Scan(&customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return owner.Int64 == customerID, nil
}

// GetMyRequestChat is the handler for GET /services/requests/:id/chat
// A customer poking at someone else's thread is bounced back to their
// own request list, not shown an error page.
func (h *Handlers) GetMyRequestChat(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	owns, err := h.ownsRequest(requestID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.Redirect(http.StatusFound, "/services/my-requests")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check request ownership"})
		return
	}
	if !owns {
		c.Redirect(http.StatusFound, "/services/my-requests")
		return
	}

	request, err := h.loadRequest(requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load request"})
		return
	}
	messages, err := h.loadMessages(requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request, "messages": messages})
}

type CustomerChatInput struct {
	Message string `json:"message" binding:"required"`
}

// PostMyRequestChat is the handler for POST /services/requests/:id/chat
func (h *Handlers) PostMyRequestChat(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	owns, err := h.ownsRequest(requestID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.Redirect(http.StatusFound, "/services/my-requests")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check request ownership"})
		return
	}
	if !owns {
		c.Redirect(http.StatusFound, "/services/my-requests")
		return
	}

	var input CustomerChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err = h.DB.Exec(`
		INSERT INTO quote_messages (request_id, user_id, sender, message, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		requestID, userID, models.SenderCustomer, input.Message, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Message sent"})
}

// GetRequestChat is the handler for GET /portal/requests/:id/chat
func (h *Handlers) GetRequestChat(c *gin.Context) {
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	request, err := h.loadRequest(requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load request"})
		return
	}
	messages, err := h.loadMessages(requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request, "messages": messages})
}

// StaffChatInput carries the two staff chat verbs: a reply, or a status
// move. Exactly one should be set; when both arrive the reply wins.
type StaffChatInput struct {
	Message      string `json:"message"`
	UpdateStatus bool   `json:"update_status"`
	NewStatus    string `json:"new_status"`
}

// PostRequestChat is the handler for POST /portal/requests/:id/chat
// Replying to a fresh or quoted request moves it to IN_PROGRESS once.
// Status moves write a narration line into the thread so the customer
// sees the change inline, plus a ledger entry; the customer is notified
// by email either way.
func (h *Handlers) PostRequestChat(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	request, err := h.loadRequest(requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load request"})
		return
	}

	var input StaffChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var username string
	if err := h.DB.QueryRow("SELECT username FROM users WHERE id = ?", userID).Scan(&username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
		return
	}

	switch {
	case input.Message != "":
		// --- Reply branch ---
		_, err = h.DB.Exec(`
			INSERT INTO quote_messages (request_id, user_id, sender, message, timestamp)
			VALUES (?, ?, ?, ?, ?)`,
			requestID, userID, models.SenderAdmin, input.Message, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
			return
		}

		// First staff touch moves the request into IN_PROGRESS.
		if request.Status == models.RequestStatusPending || request.Status == models.RequestStatusQuoted {
			if _, err := h.DB.Exec("UPDATE service_requests SET status = ? WHERE id = ?", models.RequestStatusInProgress, requestID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request status"})
				return
			}
		}

		logActivity(h.DB, &userID, models.ActionRequestReplySent,
			fmt.Sprintf("Reply sent on service request %d for %s.", requestID, request.CustomerName),
			&requestID, request.ServiceType)

		subject, body := notify.QuoteReplyBody(request.CustomerName, requestID, request.ServiceType)
		notify.SendAsync(h.Mailer, request.ContactEmail, subject, body)

		c.JSON(http.StatusCreated, gin.H{"message": "Reply sent"})
		return

	case input.UpdateStatus:
		// --- Status branch ---
		// Unknown statuses and no-op moves fall through silently; the
		// thread only records real transitions.
		newStatus := input.NewStatus
		if !models.ValidRequestStatus(newStatus) || newStatus == request.Status {
			c.JSON(http.StatusOK, gin.H{"message": "Status unchanged", "status": request.Status})
			return
		}

		if _, err := h.DB.Exec("UPDATE service_requests SET status = ? WHERE id = ?", newStatus, requestID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request status"})
			return
		}

		// Narrate the move into the thread with display labels.
		narration := fmt.Sprintf("Status changed from %s to %s by %s",
			models.RequestStatusLabels[request.Status], models.RequestStatusLabels[newStatus], username)
		if _, err := h.DB.Exec(`
			INSERT INTO quote_messages (request_id, user_id, sender, message, timestamp)
			VALUES (?, ?, ?, ?, ?)`,
			requestID, userID, models.SenderAdmin, narration, time.Now()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record status change"})
			return
		}

		logActivity(h.DB, &userID, models.ActionRequestStatusUpdated,
			fmt.Sprintf("Service request %d status changed from %s to %s.", requestID, request.Status, newStatus),
			&requestID, request.ServiceType)

		subject, body := notify.StatusChangeBody(request.CustomerName, requestID, models.RequestStatusLabels[newStatus])
		notify.SendAsync(h.Mailer, request.ContactEmail, subject, body)

		c.JSON(http.StatusOK, gin.H{"message": "Status updated", "status": newStatus})
		return

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either message or update_status is required"})
	}
}
