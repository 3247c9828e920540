package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/subgate/subgate/internal/model"
)

const productColumns = `id, name, api_key_hash, is_active, created_at, updated_at`

// CreateProduct inserts a new product. ID and APIKeyHash must already be set.
func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	const q = `INSERT INTO products (id, name, api_key_hash, is_active, created_at, updated_at)
		VALUES (:id, :name, :api_key_hash, :is_active, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, p); err != nil {
		return fmt.Errorf("insert product: %w", classifyDBError(err))
	}
	return nil
}

// GetProduct returns a product by ID, including its API key hash.
func (s *Store) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	q := s.rebind("SELECT " + productColumns + " FROM products WHERE id = ?")
	if err := s.db.GetContext(ctx, &p, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// ListProducts returns all products ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := s.db.SelectContext(ctx, &products, "SELECT "+productColumns+" FROM products ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListProductsWithPlans returns every product with all of its plans.
func (s *Store) ListProductsWithPlans(ctx context.Context) ([]model.ProductDetail, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	plans, err := s.ListPlans(ctx, "", false)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string][]model.Plan)
	for _, pl := range plans {
		byProduct[pl.ProductID] = append(byProduct[pl.ProductID], pl)
	}

	out := make([]model.ProductDetail, len(products))
	for i, p := range products {
		out[i] = model.ProductDetail{Product: p, Plans: byProduct[p.ID]}
		if out[i].Plans == nil {
			out[i].Plans = []model.Plan{}
		}
	}
	return out, nil
}

// GetProductDetail returns a product with its plans and subscriptions.
func (s *Store) GetProductDetail(ctx context.Context, id string) (*model.ProductDetail, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	plans, err := s.ListPlans(ctx, id, false)
	if err != nil {
		return nil, err
	}
	var subs []model.Subscription
	q := s.rebind("SELECT " + subscriptionColumns + " FROM subscriptions WHERE product_id = ? ORDER BY created_at DESC")
	if err := s.db.SelectContext(ctx, &subs, q, id); err != nil {
		return nil, fmt.Errorf("list product subscriptions: %w", err)
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	return &model.ProductDetail{Product: *p, Plans: plans, Subscriptions: subs}, nil
}

// UpdateProduct applies the non-nil fields of patch.
func (s *Store) UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error) {
	var b updateBuilder
	if patch.Name != nil {
		b.set("name", *patch.Name)
	}
	if patch.IsActive != nil {
		b.set("is_active", *patch.IsActive)
	}
	if b.empty() {
		return s.GetProduct(ctx, id)
	}
	b.set("updated_at", time.Now().UTC())

	q, args := b.build("products", id)
	result, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", classifyDBError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update product rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetProduct(ctx, id)
}

// SetProductAPIKeyHash replaces the product's key hash. The previous key
// stops working immediately.
func (s *Store) SetProductAPIKeyHash(ctx context.Context, id, hash string) error {
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE products SET api_key_hash = ?, updated_at = ? WHERE id = ?"),
		hash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set product api key: %w", classifyDBError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set product api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product that has no plans and no subscriptions.
// Its payment method configuration is removed with it.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	plans, err := count(ctx, tx, "SELECT COUNT(*) FROM plans WHERE product_id = ?", id)
	if err != nil {
		return fmt.Errorf("count product plans: %w", err)
	}
	subs, err := count(ctx, tx, "SELECT COUNT(*) FROM subscriptions WHERE product_id = ?", id)
	if err != nil {
		return fmt.Errorf("count product subscriptions: %w", err)
	}
	if plans > 0 || subs > 0 {
		return fmt.Errorf("%w: product has %d plans and %d subscriptions", ErrInUse, plans, subs)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM product_payment_methods WHERE product_id = ?"), id); err != nil {
		return fmt.Errorf("delete product payment methods: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM products WHERE id = ?"), id)
	if err != nil {
		if err = classifyDBError(err); errors.Is(err, ErrInvalidReference) {
			return fmt.Errorf("%w: %w", ErrInUse, err)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
