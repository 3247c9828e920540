package model

import "time"

// Plan is a priced tier of a product. Price is in the smallest currency unit
// (cents). Limits holds product-defined feature gates such as
// {"max_properties": 10}.
type Plan struct {
	ID        string                 `json:"id" db:"id"`
	ProductID string                 `json:"product_id" db:"product_id"`
	Name      string                 `json:"name" db:"name"`
	Slug      string                 `json:"slug" db:"slug"`
	Price     int64                  `json:"price" db:"price"`
	Features  string                 `json:"features" db:"features"`
	Limits    map[string]interface{} `json:"limits" db:"-"`
	IsActive  bool                   `json:"is_active" db:"is_active"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// PlanPatch carries the optional fields of a plan update.
type PlanPatch struct {
	Name     *string
	Slug     *string
	Price    *int64
	Features *string
	Limits   map[string]interface{}
	IsActive *bool
}
