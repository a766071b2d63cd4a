package models

import "time"

// Product is the model for the 'products' table.
type Product struct {
	ID            int64    `json:"id" db:"id"`
	Name          string   `json:"name" db:"name"`
	Description   string   `json:"description" db:"description"`
	Price         float64  `json:"price" db:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty" db:"discount_price"`
	StockQuantity int      `json:"stock" db:"stock_quantity"`
	Digital       bool     `json:"digital" db:"digital"` // digital goods never require shipping

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (Not in DB table, populated manually)
	Categories []Category     `json:"categories,omitempty" db:"-"`
	Images     []ProductImage `json:"images,omitempty" db:"-"`
}

// SellingPrice is the price a cart line actually pays: the discount price
// when one is set and undercuts the regular price, the regular price otherwise.
func (p *Product) SellingPrice() float64 {
	if p.DiscountPrice != nil && *p.DiscountPrice < p.Price {
		return *p.DiscountPrice
	}
	return p.Price
}

// ProductImage is the model for the 'product_images' table.
// Images are ordered by upload time; the first one is the display image.
type ProductImage struct {
	ID           int64     `json:"id" db:"id"`
	ProductID    int64     `json:"productId" db:"product_id"`
	FileName     string    `json:"-" db:"file_name"`
	URL          string    `json:"url" db:"-"`
	DateUploaded time.Time `json:"dateUploaded" db:"date_uploaded"`
}
