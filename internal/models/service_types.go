package models

import "time"

// Service request status values.
const (
	RequestStatusPending    = "PENDING"
	RequestStatusQuoted     = "QUOTED"
	RequestStatusAccepted   = "ACCEPTED"
	RequestStatusComplete   = "COMPLETE"
	RequestStatusCancelled  = "CANCELLED"
	RequestStatusInProgress = "IN_PROGRESS"
)

// RequestStatusLabels maps a status to its display name, used when
// narrating status changes into the chat thread.
var RequestStatusLabels = map[string]string{
	RequestStatusPending:    "Pending Review",
	RequestStatusQuoted:     "Quote Sent",
	RequestStatusAccepted:   "Quote Accepted",
	RequestStatusComplete:   "Job Completed",
	RequestStatusCancelled:  "Cancelled",
	RequestStatusInProgress: "In Progress",
}

func ValidRequestStatus(s string) bool {
	_, ok := RequestStatusLabels[s]
	return ok
}

// QuoteMessage sender values. Sender is independent of UserID: it decides
// which side of the chat the bubble renders on.
const (
	SenderAdmin    = "ADMIN"
	SenderCustomer = "CUSTOMER"
)

// ServiceRequest is the model for the 'service_requests' table.
type ServiceRequest struct {
	ID            int64     `json:"id" db:"id"`
	CustomerID    *int64    `json:"customerId,omitempty" db:"customer_id"`
	CustomerName  string    `json:"customerName" db:"customer_name"`
	ContactEmail  string    `json:"contactEmail" db:"contact_email"`
	ServiceType   string    `json:"serviceType" db:"service_type"` // e.g., Camera Repair, Graphic Design, Printing
	Description   string    `json:"description" db:"description"`
	DateRequested time.Time `json:"dateRequested" db:"date_requested"`
	Status        string    `json:"status" db:"status"`
}

// ServiceAttachment is the model for the 'service_attachments' table.
// Cascade-deleted with the parent request; at most 4 per request.
type ServiceAttachment struct {
	ID        int64  `json:"id" db:"id"`
	RequestID int64  `json:"requestId" db:"request_id"`
	FileName  string `json:"-" db:"file_name"`
	URL       string `json:"url" db:"-"`
}

// QuoteMessage is the model for the 'quote_messages' table. Append-only,
// rendered ascending by timestamp. System status-change lines are stored
// as ordinary admin messages.
type QuoteMessage struct {
	ID        int64     `json:"id" db:"id"`
	RequestID int64     `json:"requestId" db:"request_id"`
	UserID    *int64    `json:"userId,omitempty" db:"user_id"`
	Sender    string    `json:"sender" db:"sender"`
	Message   string    `json:"message" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
