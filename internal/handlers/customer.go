package handlers

import (
	"database/sql"
)

//
// --- Customer Profile Helpers ---
//

// execer is the slice of database/sql shared by *sql.DB and *sql.Tx,
// so helpers can run standalone or inside a checkout transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// getOrCreateCustomerID finds the customer profile linked to a user
// account, creating it on first touch. The profile's name and email are
// copied from the account at creation time.
func (h *Handlers) getOrCreateCustomerID(db execer, userID int64) (int64, error) {
	var customerID int64

	// 1. Try to find an existing profile
	query := "SELECT id FROM customers WHERE user_id = ?"
	err := db.QueryRow(query, userID).Scan(&customerID)

	if err == nil {
		return customerID, nil // Found it
	}

	// 2. If no profile exists (sql.ErrNoRows), create one from the account
	if err == sql.ErrNoRows {
		var username, email string
		if err := db.QueryRow("SELECT username, email FROM users WHERE id = ?", userID).Scan(&username, &email); err != nil {
			return 0, err
		}

		result, err := db.Exec("INSERT INTO customers (user_id, name, email) VALUES (?, ?, ?)", userID, username, email)
		if err != nil {
			return 0, err
		}
		newID, err := result.LastInsertId()
		if err != nil {
			return 0, err
		}
		return newID, nil
	}

	// 3. A real database error occurred
	return 0, err
}
