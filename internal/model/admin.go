package model

import "time"

// Admin is an operator account that authenticates against the /manage API
// with HTTP Basic credentials. Passwords are stored as bcrypt hashes.
type Admin struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Name         string     `json:"name" db:"name"`
	Role         AdminRole  `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// AdminPatch carries the optional fields of an admin update. Nil fields are
// left untouched.
type AdminPatch struct {
	Email        *string
	Name         *string
	PasswordHash *string
	Role         *AdminRole
	IsActive     *bool
}
