package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAdminPasswordHashNotInJSON(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	admin := Admin{
		ID:           "a1",
		Email:        "admin@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Name:         "Admin",
		Role:         RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	b, err := json.Marshal(admin)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if _, ok := m["password_hash"]; ok {
		t.Error("password_hash must not appear in JSON output")
	}
	if _, ok := m["PasswordHash"]; ok {
		t.Error("PasswordHash must not appear in JSON output")
	}
	if m["role"] != "SUPER_ADMIN" {
		t.Errorf("role = %v, want SUPER_ADMIN", m["role"])
	}
	if v, ok := m["last_login_at"]; !ok || v != nil {
		t.Errorf("last_login_at = %v (present=%v), want explicit null", v, ok)
	}
}

func TestProductAPIKeyHashNotInJSON(t *testing.T) {
	p := Product{ID: "acme", Name: "Acme", APIKeyHash: "$2a$10$secret", IsActive: true}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if _, ok := m["api_key_hash"]; ok {
		t.Error("api_key_hash must not appear in JSON output")
	}
	if m["id"] != "acme" {
		t.Errorf("id = %v, want acme", m["id"])
	}
}

func TestAdminRoleValid(t *testing.T) {
	tests := []struct {
		role  AdminRole
		valid bool
		super bool
	}{
		{RoleAdmin, true, false},
		{RoleSuperAdmin, true, true},
		{"super_admin", false, false},
		{"", false, false},
		{"OWNER", false, false},
	}

	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.valid {
			t.Errorf("%q.Valid() = %v, want %v", tt.role, got, tt.valid)
		}
		if got := tt.role.IsSuper(); got != tt.super {
			t.Errorf("%q.IsSuper() = %v, want %v", tt.role, got, tt.super)
		}
	}
}

func TestSubscriptionStatusValid(t *testing.T) {
	for _, s := range []SubscriptionStatus{StatusActive, StatusPendingVerification, StatusPastDue, StatusCanceled} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []SubscriptionStatus{"", "cancelled", "ACTIVE", "trial"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestProviderValid(t *testing.T) {
	for _, p := range []Provider{ProviderManual, ProviderStripe, ProviderPayPal, ProviderSystem} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	if Provider("manual").Valid() {
		t.Error("provider values are case-sensitive")
	}
}

func TestPaymentMethodTypeValid(t *testing.T) {
	if !PaymentManual.Valid() || !PaymentAutomated.Valid() {
		t.Error("manual and automated should be valid")
	}
	if PaymentMethodType("crypto").Valid() {
		t.Error("crypto should be invalid")
	}
}

func TestListResponseJSON(t *testing.T) {
	resp := NewListResponse([]Plan{{ID: "p1", Name: "Starter"}, {ID: "p2", Name: "Pro"}})

	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	resource, ok := m["resource"].([]interface{})
	if !ok {
		t.Fatal("expected 'resource' to be an array")
	}
	if len(resource) != 2 {
		t.Errorf("resource length = %d, want 2", len(resource))
	}
	meta, ok := m["meta"].(map[string]interface{})
	if !ok {
		t.Fatal("expected 'meta' to be an object")
	}
	if meta["count"] != float64(2) {
		t.Errorf("meta.count = %v, want 2", meta["count"])
	}
}

func TestListResponseNilIsEmptyArray(t *testing.T) {
	b, err := json.Marshal(NewListResponse[User](nil))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"resource":[],"meta":{"count":0}}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestErrorResponseJSON(t *testing.T) {
	b, err := json.Marshal(ErrorResponse{Error: "Invalid credentials"})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(b) != `{"error":"Invalid credentials"}` {
		t.Errorf("got %s", b)
	}

	b, err = json.Marshal(ErrorResponse{Error: "exists", Hint: "use PATCH"})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(b) != `{"error":"exists","hint":"use PATCH"}` {
		t.Errorf("got %s", b)
	}
}

func TestSubscriptionDetailEmbedsFlat(t *testing.T) {
	d := SubscriptionDetail{
		Subscription: Subscription{ID: "s1", Status: StatusActive},
		Plan:         &Plan{ID: "p1", Name: "Pro"},
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if m["id"] != "s1" {
		t.Errorf("id = %v, want s1 at top level", m["id"])
	}
	if _, ok := m["plan"].(map[string]interface{}); !ok {
		t.Error("expected nested plan object")
	}
	if _, ok := m["product"]; ok {
		t.Error("unset product should be omitted")
	}
}
