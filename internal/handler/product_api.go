package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/model"
	"github.com/subgate/subgate/internal/server/middleware"
)

// ProductAPIHandler serves the endpoints products call with their API key.
// Every operation is scoped to the product resolved by the API key gate.
type ProductAPIHandler struct {
	store  *config.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewProductAPIHandler creates a new ProductAPIHandler.
func NewProductAPIHandler(store *config.Store, logger *slog.Logger) *ProductAPIHandler {
	return &ProductAPIHandler{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// productID returns the authenticated product. The route tree guarantees
// the API key gate ran, so a missing identity is a wiring bug.
func (h *ProductAPIHandler) productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.ProductFromContext(r.Context())
	if !ok {
		h.logger.Error("product context missing", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return "", false
	}
	return id.ProductID, true
}

// ListPlans returns the active plans of the authenticated product.
// GET /plans
func (h *ProductAPIHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	plans, err := h.store.ListPlans(r.Context(), productID, true)
	if err != nil {
		writeStoreError(w, h.logger, err, "Plan")
		return
	}
	writeList(w, plans)
}

// ListPaymentMethods returns the active payment methods configured for the
// product in display order.
// GET /plans/{productId}/payment-methods
func (h *ProductAPIHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	if chi.URLParam(r, "productId") != productID {
		writeError(w, http.StatusForbidden, "API key does not belong to this product")
		return
	}
	methods, err := h.store.ListProductPaymentMethods(r.Context(), productID, true)
	if err != nil {
		writeStoreError(w, h.logger, err, "Payment method")
		return
	}
	writeList(w, methods)
}

type syncUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SyncUser registers an end user or refreshes their email and name.
// PUT /users/{userId}
func (h *ProductAPIHandler) SyncUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.productID(w, r); !ok {
		return
	}
	var req syncUserRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "A valid email is required")
		return
	}

	u := &model.User{ID: chi.URLParam(r, "userId"), Email: req.Email, Name: strings.TrimSpace(req.Name)}
	created, err := h.store.UpsertUser(r.Context(), u)
	if err != nil {
		writeStoreError(w, h.logger, err, "User")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, u)
}

// GetSubscription returns the user's subscription to this product with its
// plan.
// GET /subscriptions/{userId}
func (h *ProductAPIHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	sub, err := h.store.FindSubscription(r.Context(), chi.URLParam(r, "userId"), productID)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No subscription found")
			return
		}
		writeStoreError(w, h.logger, err, "Subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// RequestUpgrade submits a plan change that waits for payment verification.
// POST /subscriptions/{userId}/upgrade
func (h *ProductAPIHandler) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	var req model.UpgradeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.PlanID == "" {
		writeError(w, http.StatusBadRequest, "plan_id is required")
		return
	}

	sub, created, err := h.store.RequestUpgrade(r.Context(), chi.URLParam(r, "userId"), productID, req, h.now())
	if err != nil {
		writeUpgradeError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, sub)
}

// writeUpgradeError maps RequestUpgrade failures. The only missing record
// the store reports is the user; everything else concerns the subscription.
func writeUpgradeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, config.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeStoreError(w, logger, err, "Subscription")
}

// ListPending returns the product's subscriptions awaiting verification.
// GET /admin/pending
func (h *ProductAPIHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	subs, err := h.store.ListPendingSubscriptions(r.Context(), productID)
	if err != nil {
		writeStoreError(w, h.logger, err, "Subscription")
		return
	}
	for i := range subs {
		subs[i].Product = nil
	}
	writeList(w, subs)
}

type verifyRequest struct {
	SubscriptionID string `json:"subscription_id"`
	Approve        *bool  `json:"approve"`
}

// Verify approves or rejects a pending subscription of this product.
// POST /admin/verify
func (h *ProductAPIHandler) Verify(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	var req verifyRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SubscriptionID == "" || req.Approve == nil {
		writeError(w, http.StatusBadRequest, "subscription_id and approve are required")
		return
	}

	sub, err := h.store.VerifySubscription(r.Context(), productID, req.SubscriptionID, *req.Approve, h.now())
	if err != nil {
		writeStoreError(w, h.logger, err, "Subscription")
		return
	}
	h.logger.Info("subscription verified",
		"product_id", productID, "subscription_id", sub.ID, "status", sub.Status)
	writeJSON(w, http.StatusOK, sub)
}
