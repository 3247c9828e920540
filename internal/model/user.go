package model

import "time"

// User is an end user of one or more products. The ID is assigned by the
// product's identity provider, not by this service.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserDetail is a user together with every subscription they hold.
type UserDetail struct {
	User
	Subscriptions []SubscriptionDetail `json:"subscriptions"`
}

// UserFilter narrows ListUsers. Search matches a substring of the email.
type UserFilter struct {
	Search    string
	ProductID string
}
