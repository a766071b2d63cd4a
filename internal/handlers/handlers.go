package handlers

import (
	"database/sql"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/notify"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/storage"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB     *sql.DB       // Primary Read/Write connection
	Store  storage.Store // Media storage for product images and attachments
	Mailer notify.Mailer // Customer notifications (quote replies, status changes)
}
