package models

import "time"

// Category defines the struct for the 'categories' table.
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description *string   `json:"description,omitempty" db:"description"`
	Image       *string   `json:"image,omitempty" db:"image"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	// Populated by list queries, not a column.
	ProductCount int `json:"productCount,omitempty" db:"-"`
}
