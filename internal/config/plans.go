package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/subgate/subgate/internal/model"
)

const planColumns = `id, product_id, name, slug, price, features, limits_json, is_active, created_at, updated_at`

// planRow is a flat struct that maps 1:1 to the plans table. The limits_json
// column stores the JSON-encoded limits map.
type planRow struct {
	ID         string    `db:"id"`
	ProductID  string    `db:"product_id"`
	Name       string    `db:"name"`
	Slug       string    `db:"slug"`
	Price      int64     `db:"price"`
	Features   string    `db:"features"`
	LimitsJSON string    `db:"limits_json"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func planRowFromModel(p *model.Plan) (planRow, error) {
	limits, err := marshalLimits(p.Limits)
	if err != nil {
		return planRow{}, err
	}
	return planRow{
		ID:         p.ID,
		ProductID:  p.ProductID,
		Name:       p.Name,
		Slug:       p.Slug,
		Price:      p.Price,
		Features:   p.Features,
		LimitsJSON: limits,
		IsActive:   p.IsActive,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}, nil
}

func (r planRow) toModel() (model.Plan, error) {
	limits := map[string]interface{}{}
	if r.LimitsJSON != "" && r.LimitsJSON != "{}" {
		if err := json.Unmarshal([]byte(r.LimitsJSON), &limits); err != nil {
			return model.Plan{}, fmt.Errorf("unmarshal limits: %w", err)
		}
	}
	return model.Plan{
		ID:        r.ID,
		ProductID: r.ProductID,
		Name:      r.Name,
		Slug:      r.Slug,
		Price:     r.Price,
		Features:  r.Features,
		Limits:    limits,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func marshalLimits(limits map[string]interface{}) (string, error) {
	if limits == nil {
		return "{}", nil
	}
	b, err := json.Marshal(limits)
	if err != nil {
		return "", fmt.Errorf("marshal limits: %w", err)
	}
	return string(b), nil
}

func plansFromRows(rows []planRow) ([]model.Plan, error) {
	plans := make([]model.Plan, 0, len(rows))
	for _, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// CreatePlan inserts a new plan. The product must exist and the slug must be
// unique across all products.
func (s *Store) CreatePlan(ctx context.Context, p *model.Plan) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = newID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	row, err := planRowFromModel(p)
	if err != nil {
		return err
	}

	const q = `INSERT INTO plans
		(id, product_id, name, slug, price, features, limits_json, is_active, created_at, updated_at)
		VALUES
		(:id, :product_id, :name, :slug, :price, :features, :limits_json, :is_active, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert plan: %w", classifyDBError(err))
	}
	if p.Limits == nil {
		p.Limits = map[string]interface{}{}
	}
	return nil
}

// GetPlan returns a plan by ID.
func (s *Store) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	var row planRow
	q := s.rebind("SELECT " + planColumns + " FROM plans WHERE id = ?")
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlans returns plans ordered by product and price. An empty productID
// lists plans of every product; activeOnly hides disabled plans.
func (s *Store) ListPlans(ctx context.Context, productID string, activeOnly bool) ([]model.Plan, error) {
	q := "SELECT " + planColumns + " FROM plans WHERE 1 = 1"
	var args []interface{}
	if productID != "" {
		q += " AND product_id = ?"
		args = append(args, productID)
	}
	if activeOnly {
		q += " AND is_active = ?"
		args = append(args, true)
	}
	q += " ORDER BY product_id, price, name"

	var rows []planRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plansFromRows(rows)
}

// UpdatePlan applies the non-nil fields of patch. A non-nil Limits map
// replaces the stored limits wholesale.
func (s *Store) UpdatePlan(ctx context.Context, id string, patch model.PlanPatch) (*model.Plan, error) {
	var b updateBuilder
	if patch.Name != nil {
		b.set("name", *patch.Name)
	}
	if patch.Slug != nil {
		b.set("slug", *patch.Slug)
	}
	if patch.Price != nil {
		b.set("price", *patch.Price)
	}
	if patch.Features != nil {
		b.set("features", *patch.Features)
	}
	if patch.Limits != nil {
		limits, err := marshalLimits(patch.Limits)
		if err != nil {
			return nil, err
		}
		b.set("limits_json", limits)
	}
	if patch.IsActive != nil {
		b.set("is_active", *patch.IsActive)
	}
	if b.empty() {
		return s.GetPlan(ctx, id)
	}
	b.set("updated_at", time.Now().UTC())

	q, args := b.build("plans", id)
	result, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("update plan: %w", classifyDBError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update plan rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPlan(ctx, id)
}

// DeletePlan removes a plan that no subscription references.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	subs, err := count(ctx, tx, "SELECT COUNT(*) FROM subscriptions WHERE plan_id = ?", id)
	if err != nil {
		return fmt.Errorf("count plan subscriptions: %w", err)
	}
	if subs > 0 {
		return fmt.Errorf("%w: plan has %d subscriptions", ErrInUse, subs)
	}

	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM plans WHERE id = ?"), id)
	if err != nil {
		if err = classifyDBError(err); errors.Is(err, ErrInvalidReference) {
			return fmt.Errorf("%w: %w", ErrInUse, err)
		}
		return fmt.Errorf("delete plan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plan rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
