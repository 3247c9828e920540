package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/model"
	"github.com/subgate/subgate/internal/server/middleware"
	"github.com/subgate/subgate/internal/service"
)

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store  *config.Store
	hasher service.Hasher
	router chi.Router

	// identities injected in place of the auth gates
	product service.ProductIdentity
	admin   service.AdminIdentity
}

// newTestEnv creates a fresh test environment with an in-memory store and
// both handlers mounted. The auth gates are replaced by a middleware that
// injects e.product and e.admin, so tests can switch callers freely.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := service.NewBcryptHasher(bcrypt.MinCost)
	e := &testEnv{store: store, hasher: hasher}

	api := NewProductAPIHandler(store, logger)
	manage := NewManageHandler(store, hasher, logger)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithProduct(req.Context(), e.product)))
			})
		})
		r.Get("/plans", api.ListPlans)
		r.Get("/plans/{productId}/payment-methods", api.ListPaymentMethods)
		r.Put("/users/{userId}", api.SyncUser)
		r.Get("/subscriptions/{userId}", api.GetSubscription)
		r.Post("/subscriptions/{userId}/upgrade", api.RequestUpgrade)
		r.Get("/admin/pending", api.ListPending)
		r.Post("/admin/verify", api.Verify)
	})
	r.Route("/manage", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithAdmin(req.Context(), e.admin)))
			})
		})
		r.Get("/dashboard", manage.Dashboard)

		r.Get("/admins", manage.ListAdmins)
		r.Post("/admins", manage.CreateAdmin)
		r.Get("/admins/{id}", manage.GetAdmin)
		r.Patch("/admins/{id}", manage.UpdateAdmin)
		r.Delete("/admins/{id}", manage.DeleteAdmin)

		r.Get("/products", manage.ListProducts)
		r.Post("/products", manage.CreateProduct)
		r.Get("/products/{id}", manage.GetProduct)
		r.Patch("/products/{id}", manage.UpdateProduct)
		r.Delete("/products/{id}", manage.DeleteProduct)
		r.Post("/products/{id}/regenerate-key", manage.RegenerateKey)
		r.Get("/products/{id}/payment-methods", manage.ListProductPaymentMethods)
		r.Put("/products/{id}/payment-methods", manage.SetProductPaymentMethods)

		r.Get("/plans", manage.ListPlans)
		r.Post("/plans", manage.CreatePlan)
		r.Get("/plans/{id}", manage.GetPlan)
		r.Patch("/plans/{id}", manage.UpdatePlan)
		r.Delete("/plans/{id}", manage.DeletePlan)

		r.Get("/users", manage.ListUsers)
		r.Post("/users", manage.CreateUser)
		r.Get("/users/{id}", manage.GetUser)
		r.Patch("/users/{id}", manage.UpdateUser)
		r.Delete("/users/{id}", manage.DeleteUser)

		r.Get("/subscriptions", manage.ListSubscriptions)
		r.Post("/subscriptions", manage.CreateSubscription)
		r.Get("/subscriptions/{id}", manage.GetSubscription)
		r.Patch("/subscriptions/{id}", manage.UpdateSubscription)
		r.Post("/subscriptions/{id}/cancel", manage.CancelSubscription)

		r.Get("/payment-methods", manage.ListPaymentMethods)
		r.Post("/payment-methods", manage.CreatePaymentMethod)
		r.Patch("/payment-methods/{id}", manage.UpdatePaymentMethod)
		r.Delete("/payment-methods/{id}", manage.DeletePaymentMethod)
	})

	e.router = r
	return e
}

// seedAdmin creates an admin account and makes it the current caller.
func (e *testEnv) seedAdmin(t *testing.T, email string, role model.AdminRole) *model.Admin {
	t.Helper()
	hash, err := e.hasher.Hash("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin := &model.Admin{Email: email, PasswordHash: hash, Name: email, Role: role, IsActive: true}
	if err := e.store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	e.admin = service.AdminIdentity{AdminID: admin.ID, Role: role, Email: admin.Email}
	return admin
}

// seedProduct creates a product and makes it the current API caller.
func (e *testEnv) seedProduct(t *testing.T, id string) *model.Product {
	t.Helper()
	p := &model.Product{ID: id, Name: id, APIKeyHash: "hash-" + id, IsActive: true}
	if err := e.store.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("seedProduct: %v", err)
	}
	e.product = service.ProductIdentity{ProductID: id}
	return p
}

func (e *testEnv) seedPlan(t *testing.T, productID, slug string, price int64, active bool) *model.Plan {
	t.Helper()
	p := &model.Plan{ProductID: productID, Name: slug, Slug: slug, Price: price, IsActive: active}
	if err := e.store.CreatePlan(context.Background(), p); err != nil {
		t.Fatalf("seedPlan: %v", err)
	}
	return p
}

func (e *testEnv) seedUser(t *testing.T, id, email string) *model.User {
	t.Helper()
	u := &model.User{ID: id, Email: email}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seedUser: %v", err)
	}
	return u
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v; body = %s", err, rr.Body.String())
	}
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	return resp
}

func TestWriteStoreErrorMapping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", config.ErrNotFound, http.StatusNotFound},
		{"conflict", config.ErrConflict, http.StatusConflict},
		{"duplicate subscription", &config.DuplicateSubscriptionError{ExistingID: "s1", Status: model.StatusActive}, http.StatusConflict},
		{"in use", config.ErrInUse, http.StatusBadRequest},
		{"invalid reference", config.ErrInvalidReference, http.StatusBadRequest},
		{"invalid state", config.ErrInvalidState, http.StatusConflict},
		{"unexpected", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeStoreError(rr, logger, tt.err, "Thing")
			assertStatus(t, rr, tt.want)
		})
	}

	rr := httptest.NewRecorder()
	writeStoreError(rr, logger, io.ErrUnexpectedEOF, "Thing")
	if got := errorBody(t, rr).Error; got != "Internal Server Error" {
		t.Errorf("500 body = %q, internal detail must not leak", got)
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@example.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"not-an-email", false},
		{"Name <a@example.com>", false},
	}
	for _, tt := range tests {
		if got := validEmail(tt.email); got != tt.want {
			t.Errorf("validEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestListEnvelopeEmpty(t *testing.T) {
	e := newTestEnv(t)
	e.seedAdmin(t, "root@example.com", model.RoleSuperAdmin)

	rr := e.do(t, "GET", "/manage/users", nil)
	assertStatus(t, rr, http.StatusOK)
	if got := rr.Body.String(); got != "{\"resource\":[],\"meta\":{\"count\":0}}\n" {
		t.Errorf("body = %q", got)
	}
}
