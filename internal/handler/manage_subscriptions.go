package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/subgate/subgate/internal/model"
)

type createSubscriptionRequest struct {
	UserID          string                   `json:"user_id"`
	PlanID          string                   `json:"plan_id"`
	Status          model.SubscriptionStatus `json:"status"`
	Provider        model.Provider           `json:"provider"`
	PaymentMethodID *string                  `json:"payment_method_id"`
	ExternalID      *string                  `json:"external_id"`
	PaymentProofURL *string                  `json:"payment_proof_url"`
	PaymentNote     *string                  `json:"payment_note"`
	StartDate       *time.Time               `json:"start_date"`
	EndDate         *time.Time               `json:"end_date"`
}

type updateSubscriptionRequest struct {
	PlanID          *string                   `json:"plan_id"`
	Status          *model.SubscriptionStatus `json:"status"`
	Provider        *model.Provider           `json:"provider"`
	PaymentMethodID *string                   `json:"payment_method_id"`
	ExternalID      *string                   `json:"external_id"`
	PaymentProofURL *string                   `json:"payment_proof_url"`
	PaymentNote     *string                   `json:"payment_note"`
	StartDate       *time.Time                `json:"start_date"`
	EndDate         *time.Time                `json:"end_date"`
}

// ListSubscriptions returns subscriptions with plan, product, and user.
// GET /manage/subscriptions?status=&product_id=&plan_id=
func (h *ManageHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	status := model.SubscriptionStatus(queryString(r, "status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}
	subs, err := h.store.ListSubscriptions(r.Context(), model.SubscriptionFilter{
		Status:    status,
		ProductID: queryString(r, "product_id"),
		PlanID:    queryString(r, "plan_id"),
		UserID:    queryString(r, "user_id"),
	})
	if err != nil {
		writeStoreError(w, h.logger, err, "Subscription")
		return
	}
	writeList(w, subs)
}

// GetSubscription returns one subscription with its relations.
// GET /manage/subscriptions/{id}
func (h *ManageHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.GetSubscriptionDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, h.logger, err, "Subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// CreateSubscription assigns a user to a plan. The product is taken from the
// plan, and a user may hold one subscription per product.
// POST /manage/subscriptions
func (h *ManageHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" || req.PlanID == "" {
		writeError(w, http.StatusBadRequest, "user_id and plan_id are required")
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	if req.Provider != "" && !req.Provider.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid provider")
		return
	}

	if _, err := h.store.GetUser(r.Context(), req.UserID); err != nil {
		writeStoreError(w, h.logger, err, "User")
		return
	}
	plan, err := h.store.GetPlan(r.Context(), req.PlanID)
	if err != nil {
		writeStoreError(w, h.logger, err, "Plan")
		return
	}

	sub := &model.Subscription{
		UserID:          req.UserID,
		PlanID:          plan.ID,
		ProductID:       plan.ProductID,
		Status:          req.Status,
		Provider:        req.Provider,
		PaymentMethodID: req.PaymentMethodID,
		ExternalID:      req.ExternalID,
		PaymentProofURL: req.PaymentProofURL,
		PaymentNote:     req.PaymentNote,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	}
	if err := h.store.CreateSubscription(r.Context(), sub); err != nil {
		writeStoreError(w, h.logger, err, "Subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// UpdateSubscription applies a partial update. A new plan must belong to the
// same product.
// PATCH /manage/subscriptions/{id}
func (h *ManageHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req updateSubscriptionRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	if req.Provider != nil && !req.Provider.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid provider")
		return
	}

	sub, err := h.store.UpdateSubscription(r.Context(), chi.URLParam(r, "id"), model.SubscriptionPatch{
		PlanID:          req.PlanID,
		Status:          req.Status,
		Provider:        req.Provider,
		PaymentMethodID: req.PaymentMethodID,
		ExternalID:      req.ExternalID,
		PaymentProofURL: req.PaymentProofURL,
		PaymentNote:     req.PaymentNote,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	})
	if err != nil {
		writeStoreError(w, h.logger, err, "Subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// CancelSubscription ends a subscription now.
// POST /manage/subscriptions/{id}/cancel
func (h *ManageHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.CancelSubscription(r.Context(), chi.URLParam(r, "id"), h.now())
	if err != nil {
		writeStoreError(w, h.logger, err, "Subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
