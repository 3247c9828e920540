package service

import (
	"context"
	"testing"

	"github.com/subgate/subgate/internal/config"
)

func TestSeedIsIdempotent(t *testing.T) {
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	h := testHasher()
	opts := DefaultSeedOptions()

	res, err := Seed(ctx, store, h, quietLogger(), opts)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if !res.AdminCreated || !res.ProductCreated || !res.PaymentMethodCreated {
		t.Errorf("first seed should create everything: %+v", res)
	}
	if res.PlansCreated != 2 || res.ProductsLinked != 1 {
		t.Errorf("plans=%d linked=%d, want 2 and 1", res.PlansCreated, res.ProductsLinked)
	}
	if res.APIKey != opts.ProductKey {
		t.Errorf("api key = %q, want the dev key", res.APIKey)
	}

	auth := NewAuthService(store, h, quietLogger())
	if _, err := auth.AuthenticateAPIKey(ctx, opts.ProductKey); err != nil {
		t.Errorf("dev key does not authenticate: %v", err)
	}
	id, err := auth.AuthenticateAdmin(ctx, basic(opts.AdminEmail, opts.AdminPassword))
	if err != nil {
		t.Fatalf("seeded admin cannot log in: %v", err)
	}
	if !id.Role.IsSuper() {
		t.Errorf("seeded admin role = %q, want SUPER_ADMIN", id.Role)
	}

	again, err := Seed(ctx, store, h, quietLogger(), opts)
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if again.AdminCreated || again.ProductCreated || again.PaymentMethodCreated ||
		again.PlansCreated != 0 || again.ProductsLinked != 0 {
		t.Errorf("second seed created records: %+v", again)
	}

	methods, err := store.ListProductPaymentMethods(ctx, opts.ProductID, true)
	if err != nil {
		t.Fatalf("ListProductPaymentMethods: %v", err)
	}
	if len(methods) != 1 || methods[0].Slug != "manual_bank" || !methods[0].IsDefault {
		t.Errorf("payment methods = %+v", methods)
	}
}
