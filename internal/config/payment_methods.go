package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/subgate/subgate/internal/model"
)

const paymentMethodColumns = `id, slug, name, type, provider, config, is_active, created_at, updated_at`

// CreatePaymentMethod inserts a new payment method. Slugs are unique.
func (s *Store) CreatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error {
	now := time.Now().UTC()
	if pm.ID == "" {
		pm.ID = newID()
	}
	pm.CreatedAt = now
	pm.UpdatedAt = now

	const q = `INSERT INTO payment_methods
		(id, slug, name, type, provider, config, is_active, created_at, updated_at)
		VALUES
		(:id, :slug, :name, :type, :provider, :config, :is_active, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, pm); err != nil {
		return fmt.Errorf("insert payment method: %w", classifyDBError(err))
	}
	return nil
}

// GetPaymentMethod returns a payment method by ID.
func (s *Store) GetPaymentMethod(ctx context.Context, id string) (*model.PaymentMethod, error) {
	return s.getPaymentMethod(ctx, "id", id)
}

// GetPaymentMethodBySlug returns a payment method by its unique slug.
func (s *Store) GetPaymentMethodBySlug(ctx context.Context, slug string) (*model.PaymentMethod, error) {
	return s.getPaymentMethod(ctx, "slug", slug)
}

func (s *Store) getPaymentMethod(ctx context.Context, col, val string) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod
	q := s.rebind("SELECT " + paymentMethodColumns + " FROM payment_methods WHERE " + col + " = ?")
	if err := s.db.GetContext(ctx, &pm, q, val); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	return &pm, nil
}

// ListPaymentMethods returns payment methods ordered by name.
func (s *Store) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]model.PaymentMethod, error) {
	q := "SELECT " + paymentMethodColumns + " FROM payment_methods"
	var args []interface{}
	if activeOnly {
		q += " WHERE is_active = ?"
		args = append(args, true)
	}
	q += " ORDER BY name"

	var methods []model.PaymentMethod
	if err := s.db.SelectContext(ctx, &methods, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

// UpdatePaymentMethod applies the set fields of patch. The slug is
// immutable.
func (s *Store) UpdatePaymentMethod(ctx context.Context, id string, patch model.PaymentMethodPatch) (*model.PaymentMethod, error) {
	var b updateBuilder
	if patch.Name != nil {
		b.set("name", *patch.Name)
	}
	if patch.Type != nil {
		b.set("type", *patch.Type)
	}
	if patch.ClearProvider {
		b.set("provider", nil)
	} else if patch.Provider != nil {
		b.set("provider", *patch.Provider)
	}
	if patch.ClearConfig {
		b.set("config", nil)
	} else if patch.Config != nil {
		b.set("config", *patch.Config)
	}
	if patch.IsActive != nil {
		b.set("is_active", *patch.IsActive)
	}
	if b.empty() {
		return s.GetPaymentMethod(ctx, id)
	}
	b.set("updated_at", time.Now().UTC())

	q, args := b.build("payment_methods", id)
	result, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("update payment method: %w", classifyDBError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update payment method rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPaymentMethod(ctx, id)
}

// DeletePaymentMethod removes a payment method that no product configures
// and no subscription references.
func (s *Store) DeletePaymentMethod(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	links, err := count(ctx, tx, "SELECT COUNT(*) FROM product_payment_methods WHERE payment_method_id = ?", id)
	if err != nil {
		return fmt.Errorf("count payment method links: %w", err)
	}
	subs, err := count(ctx, tx, "SELECT COUNT(*) FROM subscriptions WHERE payment_method_id = ?", id)
	if err != nil {
		return fmt.Errorf("count payment method subscriptions: %w", err)
	}
	if links > 0 || subs > 0 {
		return fmt.Errorf("%w: payment method is configured on %d products and used by %d subscriptions", ErrInUse, links, subs)
	}

	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM payment_methods WHERE id = ?"), id)
	if err != nil {
		if err = classifyDBError(err); errors.Is(err, ErrInvalidReference) {
			return fmt.Errorf("%w: %w", ErrInUse, err)
		}
		return fmt.Errorf("delete payment method: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete payment method rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Product payment method configuration
// ---------------------------------------------------------------------------

// ListProductPaymentMethods returns the payment methods configured for a
// product in display order. activeOnly hides disabled methods.
func (s *Store) ListProductPaymentMethods(ctx context.Context, productID string, activeOnly bool) ([]model.ProductPaymentMethod, error) {
	q := `SELECT pm.id, pm.slug, pm.name, pm.type, pm.provider, pm.config, pm.is_active,
			pm.created_at, pm.updated_at, ppm.display_order, ppm.is_default
		FROM product_payment_methods ppm
		JOIN payment_methods pm ON pm.id = ppm.payment_method_id
		WHERE ppm.product_id = ?`
	args := []interface{}{productID}
	if activeOnly {
		q += " AND pm.is_active = ?"
		args = append(args, true)
	}
	q += " ORDER BY ppm.display_order, pm.name"

	var methods []model.ProductPaymentMethod
	if err := s.db.SelectContext(ctx, &methods, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list product payment methods: %w", err)
	}
	return methods, nil
}

// productPaymentMethodRow maps 1:1 to the product_payment_methods table.
type productPaymentMethodRow struct {
	ProductID       string `db:"product_id"`
	PaymentMethodID string `db:"payment_method_id"`
	DisplayOrder    int    `db:"display_order"`
	IsDefault       bool   `db:"is_default"`
}

// SetProductPaymentMethods replaces a product's payment method configuration
// within a transaction.
func (s *Store) SetProductPaymentMethods(ctx context.Context, productID string, links []model.ProductPaymentMethodLink) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	products, err := count(ctx, tx, "SELECT COUNT(*) FROM products WHERE id = ?", productID)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if products == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM product_payment_methods WHERE product_id = ?"), productID); err != nil {
		return fmt.Errorf("delete existing product payment methods: %w", err)
	}

	const insertQ = `INSERT INTO product_payment_methods
		(product_id, payment_method_id, display_order, is_default)
		VALUES (:product_id, :payment_method_id, :display_order, :is_default)`

	for _, l := range links {
		row := productPaymentMethodRow{
			ProductID:       productID,
			PaymentMethodID: l.PaymentMethodID,
			DisplayOrder:    l.DisplayOrder,
			IsDefault:       l.IsDefault,
		}
		if _, err := tx.NamedExecContext(ctx, insertQ, row); err != nil {
			return fmt.Errorf("insert product payment method: %w", classifyDBError(err))
		}
	}

	return tx.Commit()
}

// LinkPaymentMethod adds a single method to a product's configuration if it
// is not already present.
func (s *Store) LinkPaymentMethod(ctx context.Context, productID string, link model.ProductPaymentMethodLink) error {
	n, err := count(ctx, s.db,
		"SELECT COUNT(*) FROM product_payment_methods WHERE product_id = ? AND payment_method_id = ?",
		productID, link.PaymentMethodID)
	if err != nil {
		return fmt.Errorf("check product payment method: %w", err)
	}
	if n > 0 {
		return nil
	}

	const q = `INSERT INTO product_payment_methods
		(product_id, payment_method_id, display_order, is_default)
		VALUES (:product_id, :payment_method_id, :display_order, :is_default)`
	row := productPaymentMethodRow{
		ProductID:       productID,
		PaymentMethodID: link.PaymentMethodID,
		DisplayOrder:    link.DisplayOrder,
		IsDefault:       link.IsDefault,
	}
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("link payment method: %w", classifyDBError(err))
	}
	return nil
}
