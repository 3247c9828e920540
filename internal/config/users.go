package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/subgate/subgate/internal/model"
)

const userColumns = `id, email, name, created_at, updated_at`

// CreateUser inserts a new end user. The ID comes from the product's
// identity provider and must be set by the caller.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.Email = normalizeEmail(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now

	const q = `INSERT INTO users (id, email, name, created_at, updated_at)
		VALUES (:id, :email, :name, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, u); err != nil {
		return fmt.Errorf("insert user: %w", classifyDBError(err))
	}
	return nil
}

// UpsertUser creates the user or refreshes the email and name of an existing
// one. It reports whether a new record was created.
func (s *Store) UpsertUser(ctx context.Context, u *model.User) (bool, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if errors.Is(err, ErrNotFound) {
		if err := s.CreateUser(ctx, u); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	updated, err := s.UpdateUser(ctx, existing.ID, &u.Email, &u.Name)
	if err != nil {
		return false, err
	}
	*u = *updated
	return false, nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	q := s.rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserDetail returns a user with all of their subscriptions, each
// expanded with its plan and product.
func (s *Store) GetUserDetail(ctx context.Context, id string) (*model.UserDetail, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	subs, err := s.ListSubscriptions(ctx, model.SubscriptionFilter{UserID: id})
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].User = nil
	}
	return &model.UserDetail{User: *u, Subscriptions: subs}, nil
}

// ListUsers returns users ordered by newest first. Search matches a
// case-insensitive substring of the email; ProductID keeps only users
// subscribed to that product.
func (s *Store) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE 1 = 1"
	var args []interface{}
	if f.Search != "" {
		q += " AND LOWER(email) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
	}
	if f.ProductID != "" {
		q += " AND id IN (SELECT user_id FROM subscriptions WHERE product_id = ?)"
		args = append(args, f.ProductID)
	}
	q += " ORDER BY created_at DESC, id"

	var users []model.User
	if err := s.db.SelectContext(ctx, &users, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser changes a user's email and/or name. Nil arguments are left
// untouched.
func (s *Store) UpdateUser(ctx context.Context, id string, email, name *string) (*model.User, error) {
	var b updateBuilder
	if email != nil {
		b.set("email", normalizeEmail(*email))
	}
	if name != nil {
		b.set("name", *name)
	}
	if b.empty() {
		return s.GetUser(ctx, id)
	}
	b.set("updated_at", time.Now().UTC())

	q, args := b.build("users", id)
	result, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", classifyDBError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update user rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes a user who holds no subscriptions.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	subs, err := count(ctx, tx, "SELECT COUNT(*) FROM subscriptions WHERE user_id = ?", id)
	if err != nil {
		return fmt.Errorf("count user subscriptions: %w", err)
	}
	if subs > 0 {
		return fmt.Errorf("%w: user has %d subscriptions", ErrInUse, subs)
	}

	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", classifyDBError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
