package models

import "time"

// Product is the model for the 'products' table.
type Product struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Slug        string  `json:"slug" db:"slug"`
	Description string  `json:"description" db:"description"`
	Price       float64 `json:"price" db:"price"`
	Inventory   int     `json:"inventory" db:"inventory"`
	Active      bool    `json:"active" db:"active"`
	Featured    bool    `json:"featured" db:"featured"`
	CategoryID  int64   `json:"categoryId" db:"category_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (populated manually, not columns)
	CategoryName string         `json:"categoryName,omitempty" db:"-"`
	Images       []ProductImage `json:"images,omitempty" db:"-"`
}
