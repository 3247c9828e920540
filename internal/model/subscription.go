package model

import "time"

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	StatusActive              SubscriptionStatus = "active"
	StatusPendingVerification SubscriptionStatus = "pending_verification"
	StatusPastDue             SubscriptionStatus = "past_due"
	StatusCanceled            SubscriptionStatus = "canceled"
)

// Valid reports whether s is a known status.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPendingVerification, StatusPastDue, StatusCanceled:
		return true
	}
	return false
}

// Provider records how a subscription was paid for. No gateway is called;
// the value is informational.
type Provider string

const (
	ProviderManual Provider = "MANUAL"
	ProviderStripe Provider = "STRIPE"
	ProviderPayPal Provider = "PAYPAL"
	ProviderSystem Provider = "SYSTEM"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderManual, ProviderStripe, ProviderPayPal, ProviderSystem:
		return true
	}
	return false
}

// Subscription binds a user to a plan of a product. A user holds at most one
// subscription per product.
type Subscription struct {
	ID              string             `json:"id" db:"id"`
	UserID          string             `json:"user_id" db:"user_id"`
	PlanID          string             `json:"plan_id" db:"plan_id"`
	ProductID       string             `json:"product_id" db:"product_id"`
	Status          SubscriptionStatus `json:"status" db:"status"`
	Provider        Provider           `json:"provider" db:"provider"`
	PaymentMethodID *string            `json:"payment_method_id" db:"payment_method_id"`
	ExternalID      *string            `json:"external_id" db:"external_id"`
	PaymentProofURL *string            `json:"payment_proof_url" db:"payment_proof_url"`
	PaymentNote     *string            `json:"payment_note" db:"payment_note"`
	StartDate       *time.Time         `json:"start_date" db:"start_date"`
	EndDate         *time.Time         `json:"end_date" db:"end_date"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
}

// SubscriptionDetail is a subscription with its related records expanded.
// Only the relations the caller asked for are set.
type SubscriptionDetail struct {
	Subscription
	Plan    *Plan    `json:"plan,omitempty"`
	Product *Product `json:"product,omitempty"`
	User    *User    `json:"user,omitempty"`
}

// SubscriptionFilter narrows ListSubscriptions. Empty fields match anything.
type SubscriptionFilter struct {
	Status    SubscriptionStatus
	ProductID string
	PlanID    string
	UserID    string
}

// SubscriptionPatch carries the optional fields of a subscription update.
type SubscriptionPatch struct {
	PlanID          *string
	Status          *SubscriptionStatus
	Provider        *Provider
	PaymentMethodID *string
	ExternalID      *string
	PaymentProofURL *string
	PaymentNote     *string
	StartDate       *time.Time
	EndDate         *time.Time
}

// UpgradeRequest is an end user's request to move to a paid plan, submitted
// through the product API. It always lands in pending_verification.
type UpgradeRequest struct {
	PlanID          string  `json:"plan_id"`
	PaymentMethodID *string `json:"payment_method_id"`
	PaymentProofURL *string `json:"payment_proof_url"`
	PaymentNote     *string `json:"payment_note"`
}
