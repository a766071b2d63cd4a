package models

import "time"

// Category defines the struct for the 'categories' table
type Category struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Slug         string    `json:"slug" db:"slug"`
	Description  string    `json:"description" db:"description"`
	DisplayOrder int       `json:"displayOrder" db:"display_order"` // Lower numbers appear first on the storefront
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
