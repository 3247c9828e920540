package model

import "time"

// Product is a client application that consumes the subscription API. Its ID
// doubles as the prefix of its API key, so it never contains an underscore.
type Product struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	APIKeyHash string    `json:"-" db:"api_key_hash"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ProductDetail is a product together with its plans and, for the detail
// view, its subscriptions.
type ProductDetail struct {
	Product
	Plans         []Plan         `json:"plans"`
	Subscriptions []Subscription `json:"subscriptions,omitempty"`
}

// ProductPatch carries the optional fields of a product update.
type ProductPatch struct {
	Name     *string
	IsActive *bool
}
