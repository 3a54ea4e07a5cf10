package domain

import "time"

// Product is a catalog entry. Price is expressed in minor currency units.
type Product struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	ImageURL    string    `json:"image_url,omitempty"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
