package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/subgate/subgate/internal/model"
)

const subscriptionColumns = `id, user_id, plan_id, product_id, status, provider, payment_method_id,
	external_id, payment_proof_url, payment_note, start_date, end_date, created_at, updated_at`

const insertSubscriptionQuery = `INSERT INTO subscriptions
	(id, user_id, plan_id, product_id, status, provider, payment_method_id,
	 external_id, payment_proof_url, payment_note, start_date, end_date, created_at, updated_at)
	VALUES
	(:id, :user_id, :plan_id, :product_id, :status, :provider, :payment_method_id,
	 :external_id, :payment_proof_url, :payment_note, :start_date, :end_date, :created_at, :updated_at)`

func getSubscription(ctx context.Context, q querier, where string, args ...interface{}) (*model.Subscription, error) {
	var sub model.Subscription
	query := q.Rebind("SELECT " + subscriptionColumns + " FROM subscriptions WHERE " + where)
	if err := q.GetContext(ctx, &sub, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

// CreateSubscription inserts a subscription on behalf of an admin. Status
// defaults to active, provider to MANUAL, and an active subscription's start
// date to now. A user may hold only one subscription per product; a second
// one fails with *DuplicateSubscriptionError.
func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	if existing, err := getSubscription(ctx, s.db, "user_id = ? AND product_id = ?", sub.UserID, sub.ProductID); err == nil {
		return &DuplicateSubscriptionError{ExistingID: existing.ID, Status: existing.Status}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	if sub.ID == "" {
		sub.ID = newID()
	}
	if sub.Status == "" {
		sub.Status = model.StatusActive
	}
	if sub.Provider == "" {
		sub.Provider = model.ProviderManual
	}
	if sub.StartDate == nil && sub.Status == model.StatusActive {
		sub.StartDate = &now
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if _, err := s.db.NamedExecContext(ctx, insertSubscriptionQuery, sub); err != nil {
		err = classifyDBError(err)
		if errors.Is(err, ErrConflict) {
			// Lost a race with a concurrent insert for the same pair.
			if existing, gerr := getSubscription(ctx, s.db, "user_id = ? AND product_id = ?", sub.UserID, sub.ProductID); gerr == nil {
				return &DuplicateSubscriptionError{ExistingID: existing.ID, Status: existing.Status}
			}
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	return getSubscription(ctx, s.db, "id = ?", id)
}

// GetSubscriptionDetail returns a subscription with its plan, product, and
// user expanded.
func (s *Store) GetSubscriptionDetail(ctx context.Context, id string) (*model.SubscriptionDetail, error) {
	sub, err := s.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.expandSubscriptions(ctx, []model.Subscription{*sub})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// FindSubscription returns the user's subscription for a product with its
// plan expanded.
func (s *Store) FindSubscription(ctx context.Context, userID, productID string) (*model.SubscriptionDetail, error) {
	sub, err := getSubscription(ctx, s.db, "user_id = ? AND product_id = ?", userID, productID)
	if err != nil {
		return nil, err
	}
	plan, err := s.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return &model.SubscriptionDetail{Subscription: *sub, Plan: plan}, nil
}

// ListSubscriptions returns subscriptions matching f, newest first, with
// plan, product, and user expanded.
func (s *Store) ListSubscriptions(ctx context.Context, f model.SubscriptionFilter) ([]model.SubscriptionDetail, error) {
	q := "SELECT " + subscriptionColumns + " FROM subscriptions WHERE 1 = 1"
	var args []interface{}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.ProductID != "" {
		q += " AND product_id = ?"
		args = append(args, f.ProductID)
	}
	if f.PlanID != "" {
		q += " AND plan_id = ?"
		args = append(args, f.PlanID)
	}
	if f.UserID != "" {
		q += " AND user_id = ?"
		args = append(args, f.UserID)
	}
	q += " ORDER BY created_at DESC, id"

	var subs []model.Subscription
	if err := s.db.SelectContext(ctx, &subs, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return s.expandSubscriptions(ctx, subs)
}

// ListPendingSubscriptions returns the product's subscriptions awaiting
// payment verification.
func (s *Store) ListPendingSubscriptions(ctx context.Context, productID string) ([]model.SubscriptionDetail, error) {
	return s.ListSubscriptions(ctx, model.SubscriptionFilter{
		Status:    model.StatusPendingVerification,
		ProductID: productID,
	})
}

// expandSubscriptions loads the plans, products, and users referenced by
// subs in one query per table.
func (s *Store) expandSubscriptions(ctx context.Context, subs []model.Subscription) ([]model.SubscriptionDetail, error) {
	out := make([]model.SubscriptionDetail, len(subs))
	if len(subs) == 0 {
		return out, nil
	}

	planIDs := make([]string, 0, len(subs))
	productIDs := make([]string, 0, len(subs))
	userIDs := make([]string, 0, len(subs))
	for _, sub := range subs {
		planIDs = append(planIDs, sub.PlanID)
		productIDs = append(productIDs, sub.ProductID)
		userIDs = append(userIDs, sub.UserID)
	}

	var planRows []planRow
	if err := s.selectIn(ctx, &planRows, "SELECT "+planColumns+" FROM plans WHERE id IN (?)", planIDs); err != nil {
		return nil, fmt.Errorf("load subscription plans: %w", err)
	}
	plans := make(map[string]*model.Plan, len(planRows))
	for _, r := range planRows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		plans[p.ID] = &p
	}

	var products []model.Product
	if err := s.selectIn(ctx, &products, "SELECT "+productColumns+" FROM products WHERE id IN (?)", productIDs); err != nil {
		return nil, fmt.Errorf("load subscription products: %w", err)
	}
	productByID := make(map[string]*model.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}

	var users []model.User
	if err := s.selectIn(ctx, &users, "SELECT "+userColumns+" FROM users WHERE id IN (?)", userIDs); err != nil {
		return nil, fmt.Errorf("load subscription users: %w", err)
	}
	userByID := make(map[string]*model.User, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}

	for i, sub := range subs {
		out[i] = model.SubscriptionDetail{
			Subscription: sub,
			Plan:         plans[sub.PlanID],
			Product:      productByID[sub.ProductID],
			User:         userByID[sub.UserID],
		}
	}
	return out, nil
}

// selectIn expands a single "IN (?)" placeholder over ids.
func (s *Store) selectIn(ctx context.Context, dest interface{}, query string, ids []string) error {
	q, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}
	return s.db.SelectContext(ctx, dest, s.rebind(q), args...)
}

// UpdateSubscription applies the non-nil fields of patch. A new plan must
// belong to the subscription's product.
func (s *Store) UpdateSubscription(ctx context.Context, id string, patch model.SubscriptionPatch) (*model.Subscription, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sub, err := getSubscription(ctx, tx, "id = ?", id)
	if err != nil {
		return nil, err
	}

	var b updateBuilder
	if patch.PlanID != nil && *patch.PlanID != sub.PlanID {
		var planProduct string
		err := tx.GetContext(ctx, &planProduct, tx.Rebind("SELECT product_id FROM plans WHERE id = ?"), *patch.PlanID)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: plan %s does not exist", ErrInvalidReference, *patch.PlanID)
		}
		if err != nil {
			return nil, fmt.Errorf("get plan: %w", err)
		}
		if planProduct != sub.ProductID {
			return nil, fmt.Errorf("%w: plan belongs to a different product", ErrInvalidReference)
		}
		b.set("plan_id", *patch.PlanID)
	}
	if patch.Status != nil {
		b.set("status", *patch.Status)
	}
	if patch.Provider != nil {
		b.set("provider", *patch.Provider)
	}
	if patch.PaymentMethodID != nil {
		b.set("payment_method_id", *patch.PaymentMethodID)
	}
	if patch.ExternalID != nil {
		b.set("external_id", *patch.ExternalID)
	}
	if patch.PaymentProofURL != nil {
		b.set("payment_proof_url", *patch.PaymentProofURL)
	}
	if patch.PaymentNote != nil {
		b.set("payment_note", *patch.PaymentNote)
	}
	if patch.StartDate != nil {
		b.set("start_date", patch.StartDate.UTC())
	}
	if patch.EndDate != nil {
		b.set("end_date", patch.EndDate.UTC())
	}
	if b.empty() {
		return sub, nil
	}
	b.set("updated_at", time.Now().UTC())

	q, args := b.build("subscriptions", id)
	if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("update subscription: %w", classifyDBError(err))
	}
	updated, err := getSubscription(ctx, tx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// CancelSubscription marks a subscription canceled and ends it at the given
// time.
func (s *Store) CancelSubscription(ctx context.Context, id string, at time.Time) (*model.Subscription, error) {
	status := model.StatusCanceled
	return s.UpdateSubscription(ctx, id, model.SubscriptionPatch{Status: &status, EndDate: &at})
}

// RequestUpgrade records an end user's request to move to a plan of the
// given product. The subscription is created, or the existing one for the
// same product is moved to the plan, in pending_verification until an
// operator verifies the payment. The plan must be an active plan of the
// product and any payment method must be active and configured for it.
// It reports whether a new subscription was created.
func (s *Store) RequestUpgrade(ctx context.Context, userID, productID string, req model.UpgradeRequest, at time.Time) (*model.Subscription, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	users, err := count(ctx, tx, "SELECT COUNT(*) FROM users WHERE id = ?", userID)
	if err != nil {
		return nil, false, fmt.Errorf("check user: %w", err)
	}
	if users == 0 {
		return nil, false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	plans, err := count(ctx, tx, "SELECT COUNT(*) FROM plans WHERE id = ? AND product_id = ? AND is_active = ?",
		req.PlanID, productID, true)
	if err != nil {
		return nil, false, fmt.Errorf("check plan: %w", err)
	}
	if plans == 0 {
		return nil, false, fmt.Errorf("%w: plan %s is not an active plan of this product", ErrInvalidReference, req.PlanID)
	}

	if req.PaymentMethodID != nil {
		methods, err := count(ctx, tx, `SELECT COUNT(*) FROM product_payment_methods ppm
			JOIN payment_methods pm ON pm.id = ppm.payment_method_id
			WHERE ppm.product_id = ? AND ppm.payment_method_id = ? AND pm.is_active = ?`,
			productID, *req.PaymentMethodID, true)
		if err != nil {
			return nil, false, fmt.Errorf("check payment method: %w", err)
		}
		if methods == 0 {
			return nil, false, fmt.Errorf("%w: payment method %s is not available for this product", ErrInvalidReference, *req.PaymentMethodID)
		}
	}

	at = at.UTC()
	existing, err := getSubscription(ctx, tx, "user_id = ? AND product_id = ?", userID, productID)
	switch {
	case err == nil:
		const q = `UPDATE subscriptions SET plan_id = ?, status = ?, provider = ?, payment_method_id = ?,
			payment_proof_url = ?, payment_note = ?, updated_at = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, tx.Rebind(q),
			req.PlanID, model.StatusPendingVerification, model.ProviderManual, req.PaymentMethodID,
			req.PaymentProofURL, req.PaymentNote, at, existing.ID); err != nil {
			return nil, false, fmt.Errorf("update subscription: %w", classifyDBError(err))
		}
		updated, err := getSubscription(ctx, tx, "id = ?", existing.ID)
		if err != nil {
			return nil, false, err
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit: %w", err)
		}
		return updated, false, nil

	case errors.Is(err, ErrNotFound):
		sub := &model.Subscription{
			ID:              newID(),
			UserID:          userID,
			PlanID:          req.PlanID,
			ProductID:       productID,
			Status:          model.StatusPendingVerification,
			Provider:        model.ProviderManual,
			PaymentMethodID: req.PaymentMethodID,
			PaymentProofURL: req.PaymentProofURL,
			PaymentNote:     req.PaymentNote,
			CreatedAt:       at,
			UpdatedAt:       at,
		}
		if _, err := tx.NamedExecContext(ctx, insertSubscriptionQuery, sub); err != nil {
			return nil, false, fmt.Errorf("insert subscription: %w", classifyDBError(err))
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit: %w", err)
		}
		return sub, true, nil

	default:
		return nil, false, err
	}
}

// VerifySubscription resolves a pending subscription of the given product.
// Approval activates it from the given time; rejection cancels it. Only
// subscriptions in pending_verification can be verified.
func (s *Store) VerifySubscription(ctx context.Context, productID, id string, approve bool, at time.Time) (*model.Subscription, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sub, err := getSubscription(ctx, tx, "id = ? AND product_id = ?", id, productID)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.StatusPendingVerification {
		return nil, fmt.Errorf("%w: subscription is %s", ErrInvalidState, sub.Status)
	}

	at = at.UTC()
	var q string
	var args []interface{}
	if approve {
		q = "UPDATE subscriptions SET status = ?, start_date = ?, end_date = NULL, updated_at = ? WHERE id = ?"
		args = []interface{}{model.StatusActive, at, at, id}
	} else {
		q = "UPDATE subscriptions SET status = ?, end_date = ?, updated_at = ? WHERE id = ?"
		args = []interface{}{model.StatusCanceled, at, at, id}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("verify subscription: %w", err)
	}

	updated, err := getSubscription(ctx, tx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

// DashboardStats counts active products, plans, users, and active and
// pending subscriptions.
func (s *Store) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&stats.Products, "SELECT COUNT(*) FROM products WHERE is_active = ?", []interface{}{true}},
		{&stats.Plans, "SELECT COUNT(*) FROM plans", nil},
		{&stats.Users, "SELECT COUNT(*) FROM users", nil},
		{&stats.ActiveSubscriptions, "SELECT COUNT(*) FROM subscriptions WHERE status = ?", []interface{}{model.StatusActive}},
		{&stats.PendingSubscriptions, "SELECT COUNT(*) FROM subscriptions WHERE status = ?", []interface{}{model.StatusPendingVerification}},
	}
	for _, c := range counts {
		n, err := count(ctx, s.db, c.query, c.args...)
		if err != nil {
			return nil, fmt.Errorf("dashboard stats: %w", err)
		}
		*c.dest = n
	}
	return &stats, nil
}
