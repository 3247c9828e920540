package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/subgate/subgate/internal/model"
)

// ---------------------------------------------------------------------------
// Admins
// ---------------------------------------------------------------------------

func TestCreateAdminRequiresSuperAdmin(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)

	rr := e.do(t, "POST", "/manage/admins", toJSON(t, map[string]string{
		"email": "new@example.com", "password": "longenough",
	}))
	assertStatus(t, rr, http.StatusForbidden)
	if got := errorBody(t, rr).Error; got != "Super admin access required" {
		t.Errorf("error = %q", got)
	}

	if _, err := e.store.GetAdminByEmail(context.Background(), "new@example.com"); err == nil {
		t.Error("admin was created despite 403")
	}
}

func TestCreateAdmin(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "root@example.com", model.RoleSuperAdmin)

	rr := e.do(t, "POST", "/manage/admins", toJSON(t, map[string]string{
		"email": "short@example.com", "password": "short",
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "POST", "/manage/admins", toJSON(t, map[string]string{
		"email": "x@example.com", "password": "longenough", "role": "OWNER",
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "POST", "/manage/admins", toJSON(t, map[string]string{
		"email": "New@Example.com", "password": "longenough", "name": "New",
	}))
	assertStatus(t, rr, http.StatusCreated)
	if strings.Contains(rr.Body.String(), "password") {
		t.Errorf("response leaks password data: %s", rr.Body.String())
	}
	var admin model.Admin
	decodeJSON(t, rr, &admin)
	if admin.Email != "new@example.com" || admin.Role != model.RoleAdmin || !admin.IsActive {
		t.Errorf("admin = %+v", admin)
	}

	stored, err := e.store.GetAdmin(context.Background(), admin.ID)
	if err != nil {
		t.Fatalf("GetAdmin: %v", err)
	}
	if !e.hasher.Verify("longenough", stored.PasswordHash) {
		t.Error("stored hash does not verify the password")
	}

	rr = e.do(t, "POST", "/manage/admins", toJSON(t, map[string]string{
		"email": "new@example.com", "password": "longenough",
	}))
	assertStatus(t, rr, http.StatusConflict)
}

func TestDeleteAdminAuthorization(t *testing.T) {
	e := newTestEnv(t)
	ops := e.seedAdmin(t, "ops@example.com", model.RoleAdmin)
	root := e.seedAdmin(t, "root@example.com", model.RoleSuperAdmin)
	ctx := context.Background()

	// Super admin deleting themselves: self check wins.
	rr := e.do(t, "DELETE", "/manage/admins/"+root.ID, nil)
	assertStatus(t, rr, http.StatusBadRequest)
	if got := errorBody(t, rr).Error; got != "Cannot delete yourself" {
		t.Errorf("error = %q", got)
	}

	// Plain admin deleting themselves is also a 400, not a 403.
	e.admin.AdminID, e.admin.Role = ops.ID, model.RoleAdmin
	rr = e.do(t, "DELETE", "/manage/admins/"+ops.ID, nil)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "DELETE", "/manage/admins/"+root.ID, nil)
	assertStatus(t, rr, http.StatusForbidden)
	if _, err := e.store.GetAdmin(ctx, root.ID); err != nil {
		t.Errorf("root was deleted by a plain admin: %v", err)
	}

	e.admin.AdminID, e.admin.Role = root.ID, model.RoleSuperAdmin
	rr = e.do(t, "DELETE", "/manage/admins/"+ops.ID, nil)
	assertStatus(t, rr, http.StatusOK)
	if _, err := e.store.GetAdmin(ctx, ops.ID); err == nil {
		t.Error("ops still exists after delete")
	}

	rr = e.do(t, "DELETE", "/manage/admins/"+ops.ID, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestUpdateAdminAuthorization(t *testing.T) {
	e := newTestEnv(t)
	root := e.seedAdmin(t, "root@example.com", model.RoleSuperAdmin)
	ops := e.seedAdmin(t, "ops@example.com", model.RoleAdmin)

	rr := e.do(t, "PATCH", "/manage/admins/"+ops.ID, toJSON(t, map[string]string{"name": "Ops Team"}))
	assertStatus(t, rr, http.StatusOK)

	rr = e.do(t, "PATCH", "/manage/admins/"+ops.ID, toJSON(t, map[string]string{"role": "SUPER_ADMIN"}))
	assertStatus(t, rr, http.StatusForbidden)

	rr = e.do(t, "PATCH", "/manage/admins/"+root.ID, toJSON(t, map[string]string{"name": "Hijacked"}))
	assertStatus(t, rr, http.StatusForbidden)

	stored, err := e.store.GetAdmin(context.Background(), root.ID)
	if err != nil {
		t.Fatalf("GetAdmin: %v", err)
	}
	if stored.Name == "Hijacked" {
		t.Error("forbidden update was applied")
	}

	e.admin.AdminID, e.admin.Role = root.ID, model.RoleSuperAdmin
	rr = e.do(t, "PATCH", "/manage/admins/"+ops.ID, toJSON(t, map[string]interface{}{"role": "SUPER_ADMIN", "is_active": false}))
	assertStatus(t, rr, http.StatusOK)
	var updated model.Admin
	decodeJSON(t, rr, &updated)
	if updated.Role != model.RoleSuperAdmin || updated.IsActive {
		t.Errorf("updated = %+v", updated)
	}
}

func TestAdminSetOwnPassword(t *testing.T) {
	e := newTestEnv(t)
	ops := e.seedAdmin(t, "ops@example.com", model.RoleAdmin)

	rr := e.do(t, "PATCH", "/manage/admins/"+ops.ID, toJSON(t, map[string]string{"password": "tiny"}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "PATCH", "/manage/admins/"+ops.ID, toJSON(t, map[string]string{"password": "brand-new-pass"}))
	assertStatus(t, rr, http.StatusOK)

	stored, err := e.store.GetAdmin(context.Background(), ops.ID)
	if err != nil {
		t.Fatalf("GetAdmin: %v", err)
	}
	if !e.hasher.Verify("brand-new-pass", stored.PasswordHash) {
		t.Error("new password does not verify")
	}
}

func TestAdminPasswordOverBcryptLimit(t *testing.T) {
	e := newTestEnv(t)
	root := e.seedAdmin(t, "root@example.com", model.RoleSuperAdmin)
	long := strings.Repeat("p", 80)

	rr := e.do(t, "POST", "/manage/admins", toJSON(t, map[string]string{
		"email": "new@example.com", "password": long, "name": "New",
	}))
	assertStatus(t, rr, http.StatusBadRequest)
	if msg := errorBody(t, rr).Error; msg != "Password must be at most 72 bytes" {
		t.Errorf("error = %q", msg)
	}
	if _, err := e.store.GetAdminByEmail(context.Background(), "new@example.com"); err == nil {
		t.Error("admin created with an unusable password")
	}

	rr = e.do(t, "PATCH", "/manage/admins/"+root.ID, toJSON(t, map[string]string{"password": long}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "POST", "/manage/admins", toJSON(t, map[string]string{
		"email": "edge@example.com", "password": strings.Repeat("p", 72), "name": "Edge",
	}))
	assertStatus(t, rr, http.StatusCreated)
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

func TestCreateProductReturnsKeyOnce(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)

	rr := e.do(t, "POST", "/manage/products", toJSON(t, map[string]string{"name": "Auto Landlord"}))
	assertStatus(t, rr, http.StatusCreated)
	var created struct {
		ID     string `json:"id"`
		APIKey string `json:"api_key"`
	}
	decodeJSON(t, rr, &created)
	if created.ID != "auto-landlord" || !strings.HasPrefix(created.APIKey, "auto-landlord_prod_") {
		t.Errorf("created = %+v", created)
	}

	rr = e.do(t, "GET", "/manage/products/auto-landlord", nil)
	assertStatus(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), "api_key") {
		t.Errorf("product detail exposes key material: %s", rr.Body.String())
	}

	rr = e.do(t, "POST", "/manage/products", toJSON(t, map[string]string{"name": "Auto Landlord"}))
	assertStatus(t, rr, http.StatusConflict)

	rr = e.do(t, "POST", "/manage/products", toJSON(t, map[string]string{"id": "Bad_ID", "name": "x"}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "POST", "/manage/products", toJSON(t, map[string]string{"id": "beta", "name": "Beta", "api_key": "gamma_prod_123"}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "POST", "/manage/products", toJSON(t, map[string]string{}))
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestCreateProductKeyOverBcryptLimit(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)

	key := "beta_prod_" + strings.Repeat("k", 70)
	rr := e.do(t, "POST", "/manage/products", toJSON(t, map[string]string{"id": "beta", "name": "Beta", "api_key": key}))
	assertStatus(t, rr, http.StatusBadRequest)
	if msg := errorBody(t, rr).Error; msg != "Invalid API key" {
		t.Errorf("error = %q", msg)
	}
	if _, err := e.store.GetProduct(context.Background(), "beta"); err == nil {
		t.Error("product created with an unusable key")
	}
}

func TestRegenerateKey(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)

	rr := e.do(t, "POST", "/manage/products", toJSON(t, map[string]string{"id": "acme", "name": "Acme"}))
	assertStatus(t, rr, http.StatusCreated)
	var created struct {
		APIKey string `json:"api_key"`
	}
	decodeJSON(t, rr, &created)

	rr = e.do(t, "POST", "/manage/products/acme/regenerate-key", nil)
	assertStatus(t, rr, http.StatusOK)
	var rotated struct {
		APIKey string `json:"api_key"`
	}
	decodeJSON(t, rr, &rotated)
	if rotated.APIKey == created.APIKey || !strings.HasPrefix(rotated.APIKey, "acme_prod_") {
		t.Fatalf("rotated key = %q", rotated.APIKey)
	}

	p, err := e.store.GetProduct(context.Background(), "acme")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !e.hasher.Verify(rotated.APIKey, p.APIKeyHash) {
		t.Error("new key does not verify")
	}
	if e.hasher.Verify(created.APIKey, p.APIKeyHash) {
		t.Error("old key still verifies")
	}

	rr = e.do(t, "POST", "/manage/products/ghost/regenerate-key", nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)
	e.seedProduct(t, "acme")
	e.seedProduct(t, "empty")
	e.seedPlan(t, "acme", "acme-free", 0, true)

	rr := e.do(t, "PATCH", "/manage/products/acme", toJSON(t, map[string]interface{}{"name": "Acme Inc", "is_active": false}))
	assertStatus(t, rr, http.StatusOK)
	var p model.Product
	decodeJSON(t, rr, &p)
	if p.Name != "Acme Inc" || p.IsActive {
		t.Errorf("product = %+v", p)
	}

	rr = e.do(t, "DELETE", "/manage/products/acme", nil)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "DELETE", "/manage/products/empty", nil)
	assertStatus(t, rr, http.StatusOK)

	rr = e.do(t, "GET", "/manage/products", nil)
	assertStatus(t, rr, http.StatusOK)
	var list model.ListResponse[model.ProductDetail]
	decodeJSON(t, rr, &list)
	if list.Meta.Count != 1 || len(list.Resource[0].Plans) != 1 {
		t.Errorf("products = %+v", list.Resource)
	}
}

func TestProductPaymentMethodConfiguration(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)
	e.seedProduct(t, "acme")

	ctx := context.Background()
	bank := &model.PaymentMethod{Slug: "bank", Name: "Bank", Type: model.PaymentManual, IsActive: true}
	card := &model.PaymentMethod{Slug: "card", Name: "Card", Type: model.PaymentAutomated, IsActive: true}
	for _, pm := range []*model.PaymentMethod{bank, card} {
		if err := e.store.CreatePaymentMethod(ctx, pm); err != nil {
			t.Fatalf("CreatePaymentMethod: %v", err)
		}
	}

	body := map[string]interface{}{"payment_methods": []map[string]interface{}{
		{"payment_method_id": bank.ID, "display_order": 2, "is_default": true},
		{"payment_method_id": card.ID, "display_order": 1, "is_default": true},
	}}
	rr := e.do(t, "PUT", "/manage/products/acme/payment-methods", toJSON(t, body))
	assertStatus(t, rr, http.StatusBadRequest)

	body = map[string]interface{}{"payment_methods": []map[string]interface{}{
		{"payment_method_id": bank.ID, "display_order": 2, "is_default": true},
		{"payment_method_id": card.ID, "display_order": 1},
	}}
	rr = e.do(t, "PUT", "/manage/products/acme/payment-methods", toJSON(t, body))
	assertStatus(t, rr, http.StatusOK)
	var list model.ListResponse[model.ProductPaymentMethod]
	decodeJSON(t, rr, &list)
	if list.Meta.Count != 2 || list.Resource[0].Slug != "card" {
		t.Errorf("methods = %+v, want card first", list.Resource)
	}

	rr = e.do(t, "PUT", "/manage/products/acme/payment-methods", toJSON(t, map[string]interface{}{
		"payment_methods": []map[string]interface{}{{"payment_method_id": "missing"}},
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "GET", "/manage/products/ghost/payment-methods", nil)
	assertStatus(t, rr, http.StatusNotFound)

	rr = e.do(t, "DELETE", "/manage/payment-methods/"+bank.ID, nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

// ---------------------------------------------------------------------------
// Plans
// ---------------------------------------------------------------------------

func TestCreatePlanValidation(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)
	e.seedProduct(t, "acme")

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"missing product", map[string]interface{}{"name": "Pro", "slug": "pro"}, http.StatusBadRequest},
		{"bad slug", map[string]interface{}{"product_id": "acme", "name": "Pro", "slug": "Pro Plan"}, http.StatusBadRequest},
		{"negative price", map[string]interface{}{"product_id": "acme", "name": "Pro", "slug": "pro", "price": -1}, http.StatusBadRequest},
		{"unknown product", map[string]interface{}{"product_id": "ghost", "name": "Pro", "slug": "pro"}, http.StatusNotFound},
		{"ok", map[string]interface{}{"product_id": "acme", "name": "Pro", "slug": "pro", "price": 2900, "limits": map[string]int{"max_properties": 10}}, http.StatusCreated},
		{"duplicate slug", map[string]interface{}{"product_id": "acme", "name": "Pro 2", "slug": "pro"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, "POST", "/manage/plans", toJSON(t, tt.body))
			assertStatus(t, rr, tt.want)
		})
	}

	rr := e.do(t, "GET", "/manage/plans?product_id=acme", nil)
	assertStatus(t, rr, http.StatusOK)
	var list model.ListResponse[model.Plan]
	decodeJSON(t, rr, &list)
	if list.Meta.Count != 1 || list.Resource[0].Limits["max_properties"] != float64(10) {
		t.Errorf("plans = %+v", list.Resource)
	}
}

func TestUpdateAndDeletePlan(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)
	e.seedProduct(t, "acme")
	plan := e.seedPlan(t, "acme", "pro", 2900, true)
	spare := e.seedPlan(t, "acme", "spare", 100, true)
	e.seedUser(t, "u-1", "u1@example.com")
	if err := e.store.CreateSubscription(context.Background(), &model.Subscription{
		UserID: "u-1", PlanID: plan.ID, ProductID: "acme",
	}); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	rr := e.do(t, "PATCH", "/manage/plans/"+plan.ID, toJSON(t, map[string]interface{}{"price": -5}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "PATCH", "/manage/plans/"+plan.ID, toJSON(t, map[string]interface{}{"price": 3900, "is_active": false}))
	assertStatus(t, rr, http.StatusOK)
	var updated model.Plan
	decodeJSON(t, rr, &updated)
	if updated.Price != 3900 || updated.IsActive {
		t.Errorf("updated = %+v", updated)
	}

	rr = e.do(t, "DELETE", "/manage/plans/"+plan.ID, nil)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "DELETE", "/manage/plans/"+spare.ID, nil)
	assertStatus(t, rr, http.StatusOK)

	rr = e.do(t, "GET", "/manage/plans/"+spare.ID, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestManageUsers(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)

	rr := e.do(t, "POST", "/manage/users", toJSON(t, map[string]string{"email": "a@example.com"}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "POST", "/manage/users", toJSON(t, map[string]string{"id": "u-1", "email": "alice@example.com", "name": "Alice"}))
	assertStatus(t, rr, http.StatusCreated)
	rr = e.do(t, "POST", "/manage/users", toJSON(t, map[string]string{"id": "u-2", "email": "bob@example.com"}))
	assertStatus(t, rr, http.StatusCreated)

	rr = e.do(t, "GET", "/manage/users?search=ALICE", nil)
	assertStatus(t, rr, http.StatusOK)
	var list model.ListResponse[model.User]
	decodeJSON(t, rr, &list)
	if list.Meta.Count != 1 || list.Resource[0].ID != "u-1" {
		t.Errorf("search = %+v", list.Resource)
	}

	rr = e.do(t, "PATCH", "/manage/users/u-2", toJSON(t, map[string]string{"email": "alice@example.com"}))
	assertStatus(t, rr, http.StatusConflict)

	rr = e.do(t, "PATCH", "/manage/users/u-2", toJSON(t, map[string]string{"name": "Bob"}))
	assertStatus(t, rr, http.StatusOK)

	rr = e.do(t, "GET", "/manage/users/u-1", nil)
	assertStatus(t, rr, http.StatusOK)
	var detail model.UserDetail
	decodeJSON(t, rr, &detail)
	if detail.Email != "alice@example.com" || detail.Subscriptions == nil {
		t.Errorf("detail = %+v", detail)
	}

	rr = e.do(t, "DELETE", "/manage/users/u-2", nil)
	assertStatus(t, rr, http.StatusOK)
	rr = e.do(t, "GET", "/manage/users/u-2", nil)
	assertStatus(t, rr, http.StatusNotFound)
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

func TestManageSubscriptions(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)
	e.seedProduct(t, "other")
	foreign := e.seedPlan(t, "other", "other-pro", 1000, true)
	e.seedProduct(t, "acme")
	starter := e.seedPlan(t, "acme", "starter", 0, true)
	pro := e.seedPlan(t, "acme", "pro", 2900, true)
	e.seedUser(t, "u-1", "u1@example.com")

	rr := e.do(t, "POST", "/manage/subscriptions", toJSON(t, map[string]string{"user_id": "ghost", "plan_id": starter.ID}))
	assertStatus(t, rr, http.StatusNotFound)

	rr = e.do(t, "POST", "/manage/subscriptions", toJSON(t, map[string]string{"user_id": "u-1", "plan_id": starter.ID, "status": "paused"}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "POST", "/manage/subscriptions", toJSON(t, map[string]string{"user_id": "u-1", "plan_id": starter.ID}))
	assertStatus(t, rr, http.StatusCreated)
	var sub model.Subscription
	decodeJSON(t, rr, &sub)
	if sub.ProductID != "acme" || sub.Status != model.StatusActive || sub.StartDate == nil {
		t.Errorf("subscription = %+v", sub)
	}

	rr = e.do(t, "POST", "/manage/subscriptions", toJSON(t, map[string]string{"user_id": "u-1", "plan_id": pro.ID}))
	assertStatus(t, rr, http.StatusConflict)
	if resp := errorBody(t, rr); !strings.Contains(resp.Hint, sub.ID) {
		t.Errorf("hint = %q, want existing id %s", resp.Hint, sub.ID)
	}

	rr = e.do(t, "PATCH", "/manage/subscriptions/"+sub.ID, toJSON(t, map[string]string{"plan_id": foreign.ID}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "PATCH", "/manage/subscriptions/"+sub.ID, toJSON(t, map[string]string{"plan_id": pro.ID, "status": "past_due"}))
	assertStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &sub)
	if sub.PlanID != pro.ID || sub.Status != model.StatusPastDue {
		t.Errorf("patched = %+v", sub)
	}

	rr = e.do(t, "GET", "/manage/subscriptions?status=past_due&product_id=acme", nil)
	assertStatus(t, rr, http.StatusOK)
	var list model.ListResponse[model.SubscriptionDetail]
	decodeJSON(t, rr, &list)
	if list.Meta.Count != 1 || list.Resource[0].User == nil || list.Resource[0].Product == nil {
		t.Errorf("list = %+v", list.Resource)
	}

	rr = e.do(t, "GET", "/manage/subscriptions?status=bogus", nil)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = e.do(t, "POST", "/manage/subscriptions/"+sub.ID+"/cancel", nil)
	assertStatus(t, rr, http.StatusOK)
	decodeJSON(t, rr, &sub)
	if sub.Status != model.StatusCanceled || sub.EndDate == nil {
		t.Errorf("canceled = %+v", sub)
	}

	rr = e.do(t, "POST", "/manage/subscriptions/ghost/cancel", nil)
	assertStatus(t, rr, http.StatusNotFound)
}

// ---------------------------------------------------------------------------
// Payment methods
// ---------------------------------------------------------------------------

func TestManagePaymentMethods(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"bad slug", map[string]interface{}{"slug": "Bank-Transfer", "name": "Bank"}, http.StatusBadRequest},
		{"bad type", map[string]interface{}{"slug": "bank", "name": "Bank", "type": "crypto"}, http.StatusBadRequest},
		{"bad config", map[string]interface{}{"slug": "bank", "name": "Bank", "config": "{not json"}, http.StatusBadRequest},
		{"missing name", map[string]interface{}{"slug": "bank"}, http.StatusBadRequest},
		{"ok", map[string]interface{}{"slug": "manual_bank", "name": "Bank", "config": map[string]string{"bank": "BCA"}}, http.StatusCreated},
		{"duplicate", map[string]interface{}{"slug": "manual_bank", "name": "Bank again"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, "POST", "/manage/payment-methods", toJSON(t, tt.body))
			assertStatus(t, rr, tt.want)
		})
	}

	pm, err := e.store.GetPaymentMethodBySlug(context.Background(), "manual_bank")
	if err != nil {
		t.Fatalf("GetPaymentMethodBySlug: %v", err)
	}
	if pm.Type != model.PaymentManual || pm.Config == nil || *pm.Config != `{"bank":"BCA"}` {
		t.Errorf("stored = %+v", pm)
	}

	rr := e.do(t, "PATCH", "/manage/payment-methods/"+pm.ID, toJSON(t, map[string]interface{}{"config": nil, "is_active": false}))
	assertStatus(t, rr, http.StatusOK)
	var updated model.PaymentMethod
	decodeJSON(t, rr, &updated)
	if updated.Config != nil || updated.IsActive {
		t.Errorf("updated = %+v", updated)
	}

	rr = e.do(t, "GET", "/manage/payment-methods?active=true", nil)
	assertStatus(t, rr, http.StatusOK)
	var list model.ListResponse[model.PaymentMethod]
	decodeJSON(t, rr, &list)
	if list.Meta.Count != 0 {
		t.Errorf("active methods = %d, want 0", list.Meta.Count)
	}

	rr = e.do(t, "DELETE", "/manage/payment-methods/"+pm.ID, nil)
	assertStatus(t, rr, http.StatusOK)
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

func TestDashboard(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "ops@example.com", model.RoleAdmin)
	e.seedProduct(t, "acme")
	plan := e.seedPlan(t, "acme", "pro", 2900, true)
	e.seedUser(t, "u-1", "u1@example.com")
	e.seedUser(t, "u-2", "u2@example.com")
	ctx := context.Background()
	if err := e.store.CreateSubscription(ctx, &model.Subscription{UserID: "u-1", PlanID: plan.ID, ProductID: "acme"}); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	if err := e.store.CreateSubscription(ctx, &model.Subscription{
		UserID: "u-2", PlanID: plan.ID, ProductID: "acme", Status: model.StatusPendingVerification,
	}); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	rr := e.do(t, "GET", "/manage/dashboard", nil)
	assertStatus(t, rr, http.StatusOK)
	var stats model.DashboardStats
	decodeJSON(t, rr, &stats)
	want := model.DashboardStats{Products: 1, Plans: 1, Users: 2, ActiveSubscriptions: 1, PendingSubscriptions: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}
