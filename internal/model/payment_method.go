package model

import "time"

// PaymentMethodType distinguishes methods confirmed by an operator from
// methods confirmed by a gateway callback.
type PaymentMethodType string

const (
	PaymentManual    PaymentMethodType = "manual"
	PaymentAutomated PaymentMethodType = "automated"
)

// Valid reports whether t is a known payment method type.
func (t PaymentMethodType) Valid() bool {
	return t == PaymentManual || t == PaymentAutomated
}

// PaymentMethod is a way end users can pay, such as a bank transfer. Config
// is an opaque JSON document shown to the user (account numbers and the like).
type PaymentMethod struct {
	ID        string            `json:"id" db:"id"`
	Slug      string            `json:"slug" db:"slug"`
	Name      string            `json:"name" db:"name"`
	Type      PaymentMethodType `json:"type" db:"type"`
	Provider  *string           `json:"provider" db:"provider"`
	Config    *string           `json:"config" db:"config"`
	IsActive  bool              `json:"is_active" db:"is_active"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// PaymentMethodPatch carries the optional fields of a payment method update.
// ClearProvider and ClearConfig null the column when set.
type PaymentMethodPatch struct {
	Name          *string
	Type          *PaymentMethodType
	Provider      *string
	ClearProvider bool
	Config        *string
	ClearConfig   bool
	IsActive      *bool
}

// ProductPaymentMethod is a payment method as configured for one product.
type ProductPaymentMethod struct {
	PaymentMethod
	DisplayOrder int  `json:"display_order" db:"display_order"`
	IsDefault    bool `json:"is_default" db:"is_default"`
}

// ProductPaymentMethodLink is one entry of a product's payment method
// configuration.
type ProductPaymentMethodLink struct {
	PaymentMethodID string `json:"payment_method_id"`
	DisplayOrder    int    `json:"display_order"`
	IsDefault       bool   `json:"is_default"`
}
