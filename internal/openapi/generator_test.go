package openapi

import (
	"context"
	"strings"
	"testing"
)

func TestGenerate_Info(t *testing.T) {
	doc, err := Generate("http://localhost:8080", "1.2.3")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if doc.Info == nil || doc.Info.Version != "1.2.3" {
		t.Errorf("Info = %+v", doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("Servers not set correctly")
	}
}

func TestGenerate_Validates(t *testing.T) {
	doc, err := Generate("http://localhost:8080", "dev")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGenerate_ResolvesComponentRefs(t *testing.T) {
	doc, err := Generate("", "dev")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	op := doc.Paths.Value("/admin/pending").Get
	if op == nil {
		t.Fatal("GET /admin/pending not documented")
	}
	resp := op.Responses.Value("200")
	if resp == nil || resp.Value == nil {
		t.Fatal("200 response missing")
	}
	envelope := resp.Value.Content.Get("application/json").Schema.Value
	items := envelope.Properties["resource"].Value.Items
	if items.Ref != "#/components/schemas/SubscriptionDetail" {
		t.Errorf("items ref = %q", items.Ref)
	}
	if items.Value == nil {
		t.Error("items ref not bound to its component schema")
	}

	errRef := op.Responses.Value("401").Value.Content.Get("application/json").Schema
	if errRef.Value == nil {
		t.Error("ErrorResponse ref not bound")
	}
}

func TestGenerate_SecuritySchemes(t *testing.T) {
	doc, err := Generate("", "dev")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	apiKey, ok := doc.Components.SecuritySchemes[APIKeyScheme]
	if !ok {
		t.Fatal("ApiKeyAuth security scheme not found")
	}
	if apiKey.Value.Type != "apiKey" || apiKey.Value.In != "header" || apiKey.Value.Name != "X-API-Key" {
		t.Errorf("ApiKeyAuth = %+v", apiKey.Value)
	}

	basic, ok := doc.Components.SecuritySchemes[AdminScheme]
	if !ok {
		t.Fatal("AdminAuth security scheme not found")
	}
	if basic.Value.Type != "http" || basic.Value.Scheme != "basic" {
		t.Errorf("AdminAuth = %+v", basic.Value)
	}
}

func TestGenerate_OperationSecurity(t *testing.T) {
	doc, err := Generate("", "dev")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			var want string
			switch {
			case path == "/health":
				want = ""
			case strings.HasPrefix(path, "/manage/"):
				want = AdminScheme
			default:
				want = APIKeyScheme
			}

			if want == "" {
				if op.Security != nil {
					t.Errorf("%s %s: unexpected security %v", method, path, *op.Security)
				}
				continue
			}
			if op.Security == nil || len(*op.Security) != 1 {
				t.Errorf("%s %s: security = %v, want %s", method, path, op.Security, want)
				continue
			}
			if _, ok := (*op.Security)[0][want]; !ok {
				t.Errorf("%s %s: security = %v, want %s", method, path, *op.Security, want)
			}
			if op.Responses.Value("401") == nil {
				t.Errorf("%s %s: 401 response not documented", method, path)
			}
		}
	}
}

func TestGenerate_Paths(t *testing.T) {
	doc, err := Generate("", "dev")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tests := []struct {
		path   string
		method string
	}{
		{"/plans", "GET"},
		{"/plans/{productId}/payment-methods", "GET"},
		{"/users/{userId}", "PUT"},
		{"/subscriptions/{userId}", "GET"},
		{"/subscriptions/{userId}/upgrade", "POST"},
		{"/{userId}/upgrade", "POST"},
		{"/admin/pending", "GET"},
		{"/admin/verify", "POST"},
		{"/manage/admins", "POST"},
		{"/manage/admins/{id}", "DELETE"},
		{"/manage/products/{id}/regenerate-key", "POST"},
		{"/manage/products/{id}/payment-methods", "PUT"},
		{"/manage/subscriptions/{id}/cancel", "POST"},
		{"/manage/payment-methods/{id}", "PATCH"},
		{"/manage/dashboard", "GET"},
	}
	for _, tt := range tests {
		item := doc.Paths.Value(tt.path)
		if item == nil {
			t.Errorf("path %s missing", tt.path)
			continue
		}
		if item.GetOperation(tt.method) == nil {
			t.Errorf("%s %s missing", tt.method, tt.path)
		}
	}
}

func TestGenerate_ComponentSchemasHideSecrets(t *testing.T) {
	doc, err := Generate("", "dev")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	admin := doc.Components.Schemas["Admin"]
	if admin == nil || admin.Value == nil {
		t.Fatal("Admin schema missing")
	}
	if _, ok := admin.Value.Properties["password_hash"]; ok {
		t.Error("Admin schema exposes password_hash")
	}
	if _, ok := admin.Value.Properties["email"]; !ok {
		t.Error("Admin schema lacks email")
	}

	product := doc.Components.Schemas["Product"]
	if product == nil || product.Value == nil {
		t.Fatal("Product schema missing")
	}
	if _, ok := product.Value.Properties["api_key_hash"]; ok {
		t.Error("Product schema exposes api_key_hash")
	}

	sub := doc.Components.Schemas["Subscription"]
	if sub == nil || sub.Value == nil {
		t.Fatal("Subscription schema missing")
	}
	if _, ok := sub.Value.Properties["status"]; !ok {
		t.Error("Subscription schema lacks status")
	}
}

func TestOperationID(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{"GET", "/plans", "get_plans"},
		{"POST", "/subscriptions/{userId}/upgrade", "post_subscriptions_userId_upgrade"},
		{"POST", "/manage/products/{id}/regenerate-key", "post_manage_products_id_regenerate_key"},
		{"DELETE", "/manage/payment-methods/{id}", "delete_manage_payment_methods_id"},
	}
	for _, tt := range tests {
		if got := operationID(tt.method, tt.path); got != tt.want {
			t.Errorf("operationID(%s, %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}
