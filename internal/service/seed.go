package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/model"
)

// SeedOptions controls the bootstrap data created by Seed.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	ProductID     string
	ProductName   string
	// ProductKey is the plaintext dev key. Empty generates one.
	ProductKey string
}

// DefaultSeedOptions returns the development bootstrap data.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin123",
		ProductID:     "auto-landlord",
		ProductName:   "Auto-Landlord",
		ProductKey:    "auto-landlord_dev_local-development-key",
	}
}

// SeedResult reports what Seed created. Records that already existed are
// left untouched and not counted.
type SeedResult struct {
	AdminCreated         bool
	ProductCreated       bool
	APIKey               string
	PlansCreated         int
	PaymentMethodCreated bool
	ProductsLinked       int
}

// Seed idempotently creates the default super admin, the development
// product with its starter plans, and the manual bank transfer payment
// method linked to every product.
func Seed(ctx context.Context, store *config.Store, hasher Hasher, logger *slog.Logger, opts SeedOptions) (*SeedResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := &SeedResult{}

	if _, err := store.GetAdminByEmail(ctx, opts.AdminEmail); errors.Is(err, config.ErrNotFound) {
		hash, err := hasher.Hash(opts.AdminPassword)
		if err != nil {
			return nil, err
		}
		admin := &model.Admin{
			Email:        opts.AdminEmail,
			PasswordHash: hash,
			Name:         "Super Admin",
			Role:         model.RoleSuperAdmin,
			IsActive:     true,
		}
		if err := store.CreateAdmin(ctx, admin); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		res.AdminCreated = true
		logger.Info("seeded super admin", "email", admin.Email)
	} else if err != nil {
		return nil, err
	}

	if _, err := store.GetProduct(ctx, opts.ProductID); errors.Is(err, config.ErrNotFound) {
		_, key, err := NewProductService(store, hasher).Create(ctx, opts.ProductID, opts.ProductName, opts.ProductKey)
		if err != nil {
			return nil, fmt.Errorf("seed product: %w", err)
		}
		res.ProductCreated = true
		res.APIKey = key
		logger.Info("seeded product", "product_id", opts.ProductID)
	} else if err != nil {
		return nil, err
	}

	existing, err := store.ListPlans(ctx, opts.ProductID, false)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p.Slug] = true
	}
	for _, p := range starterPlans(opts.ProductID) {
		if have[p.Slug] {
			continue
		}
		if err := store.CreatePlan(ctx, &p); err != nil {
			return nil, fmt.Errorf("seed plan %s: %w", p.Slug, err)
		}
		res.PlansCreated++
	}

	bank, err := store.GetPaymentMethodBySlug(ctx, "manual_bank")
	if errors.Is(err, config.ErrNotFound) {
		cfg := `{"bank_name":"BCA","account_number":"1234567890","account_name":"PT Subscription Platform",` +
			`"instructions":"Transfer to the account above and upload proof of payment"}`
		bank = &model.PaymentMethod{
			Slug:     "manual_bank",
			Name:     "Bank Transfer",
			Type:     model.PaymentManual,
			Config:   &cfg,
			IsActive: true,
		}
		if err := store.CreatePaymentMethod(ctx, bank); err != nil {
			return nil, fmt.Errorf("seed payment method: %w", err)
		}
		res.PaymentMethodCreated = true
	} else if err != nil {
		return nil, err
	}

	products, err := store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		methods, err := store.ListProductPaymentMethods(ctx, p.ID, false)
		if err != nil {
			return nil, err
		}
		if len(methods) > 0 {
			continue
		}
		link := model.ProductPaymentMethodLink{PaymentMethodID: bank.ID, DisplayOrder: 0, IsDefault: true}
		if err := store.LinkPaymentMethod(ctx, p.ID, link); err != nil {
			return nil, fmt.Errorf("link payment method to %s: %w", p.ID, err)
		}
		res.ProductsLinked++
	}

	return res, nil
}

func starterPlans(productID string) []model.Plan {
	return []model.Plan{
		{
			ProductID: productID,
			Name:      "Starter",
			Slug:      productID + "-starter",
			Price:     0,
			Features:  "Up to 2 properties,Basic tenant management,Email support",
			Limits:    map[string]interface{}{"properties": 2},
			IsActive:  true,
		},
		{
			ProductID: productID,
			Name:      "Pro",
			Slug:      productID + "-pro",
			Price:     2900,
			Features:  "Unlimited properties,Advanced reporting,Priority support",
			Limits:    map[string]interface{}{"properties": 999999},
			IsActive:  true,
		},
	}
}
