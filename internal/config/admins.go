package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/subgate/subgate/internal/model"
)

const adminColumns = `id, email, password_hash, name, role, is_active, last_login_at, created_at, updated_at`

// CreateAdmin inserts a new admin account. The email is stored lower-cased.
// ID, CreatedAt, and UpdatedAt are populated on success.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	if admin.ID == "" {
		admin.ID = newID()
	}
	admin.Email = normalizeEmail(admin.Email)
	admin.CreatedAt = now
	admin.UpdatedAt = now

	const q = `INSERT INTO admin_users
		(id, email, password_hash, name, role, is_active, last_login_at, created_at, updated_at)
		VALUES
		(:id, :email, :password_hash, :name, :role, :is_active, :last_login_at, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, admin); err != nil {
		return fmt.Errorf("insert admin: %w", classifyDBError(err))
	}
	return nil
}

// GetAdmin returns an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	var admin model.Admin
	q := s.rebind("SELECT " + adminColumns + " FROM admin_users WHERE id = ?")
	if err := s.db.GetContext(ctx, &admin, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &admin, nil
}

// GetAdminByEmail returns an admin by email address. Matching is
// case-insensitive.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	q := s.rebind("SELECT " + adminColumns + " FROM admin_users WHERE email = ?")
	if err := s.db.GetContext(ctx, &admin, q, normalizeEmail(email)); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts ordered by email.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT "+adminColumns+" FROM admin_users ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	n, err := count(ctx, s.db, "SELECT COUNT(*) FROM admin_users")
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return n > 0, nil
}

// UpdateAdmin applies the non-nil fields of patch and returns the updated
// record.
func (s *Store) UpdateAdmin(ctx context.Context, id string, patch model.AdminPatch) (*model.Admin, error) {
	var b updateBuilder
	if patch.Email != nil {
		b.set("email", normalizeEmail(*patch.Email))
	}
	if patch.Name != nil {
		b.set("name", *patch.Name)
	}
	if patch.PasswordHash != nil {
		b.set("password_hash", *patch.PasswordHash)
	}
	if patch.Role != nil {
		b.set("role", *patch.Role)
	}
	if patch.IsActive != nil {
		b.set("is_active", *patch.IsActive)
	}
	if b.empty() {
		return s.GetAdmin(ctx, id)
	}
	b.set("updated_at", time.Now().UTC())

	q, args := b.build("admin_users", id)
	result, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("update admin: %w", classifyDBError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update admin rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetAdmin(ctx, id)
}

// DeleteAdmin removes an admin account by ID.
func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM admin_users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete admin rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAdminLastLogin records a successful authentication. Only
// last_login_at is touched so concurrent profile edits are not clobbered.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE admin_users SET last_login_at = ? WHERE id = ?"), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update admin last login: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin last login rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
