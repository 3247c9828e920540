package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/subgate/subgate/internal/model"
)

var paymentSlugPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type createPaymentMethodRequest struct {
	Slug     string                  `json:"slug"`
	Name     string                  `json:"name"`
	Type     model.PaymentMethodType `json:"type"`
	Provider *string                 `json:"provider"`
	Config   json.RawMessage         `json:"config"`
	IsActive *bool                   `json:"is_active"`
}

type updatePaymentMethodRequest struct {
	Name     *string                  `json:"name"`
	Type     *model.PaymentMethodType `json:"type"`
	Provider *string                  `json:"provider"`
	Config   json.RawMessage          `json:"config"`
	IsActive *bool                    `json:"is_active"`
}

// configString validates a config document and returns it as stored text.
// A JSON string is taken as already-encoded JSON. Null or absent means no
// config.
func configString(raw json.RawMessage) (*string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, true
	}
	text := string(raw)
	var s string
	if json.Unmarshal(raw, &s) == nil {
		text = s
	}
	if !json.Valid([]byte(text)) {
		return nil, false
	}
	return &text, true
}

// ListPaymentMethods returns every payment method.
// GET /manage/payment-methods
func (h *ManageHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.store.ListPaymentMethods(r.Context(), queryBool(r, "active"))
	if err != nil {
		writeStoreError(w, h.logger, err, "Payment method")
		return
	}
	writeList(w, methods)
}

// CreatePaymentMethod adds a payment method.
// POST /manage/payment-methods
func (h *ManageHandler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req createPaymentMethodRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if !paymentSlugPattern.MatchString(req.Slug) {
		writeError(w, http.StatusBadRequest, "Invalid slug", "Use lowercase letters, digits, and '_'")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Type == "" {
		req.Type = model.PaymentManual
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid type", "Use manual or automated")
		return
	}
	cfg, ok := configString(req.Config)
	if !ok {
		writeError(w, http.StatusBadRequest, "config must be valid JSON")
		return
	}

	pm := &model.PaymentMethod{
		Slug:     req.Slug,
		Name:     req.Name,
		Type:     req.Type,
		Provider: req.Provider,
		Config:   cfg,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := h.store.CreatePaymentMethod(r.Context(), pm); err != nil {
		writeStoreError(w, h.logger, err, "Payment method")
		return
	}
	writeJSON(w, http.StatusCreated, pm)
}

// UpdatePaymentMethod applies a partial update. An explicit null clears the
// config.
// PATCH /manage/payment-methods/{id}
func (h *ManageHandler) UpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentMethodRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Type != nil && !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid type", "Use manual or automated")
		return
	}

	patch := model.PaymentMethodPatch{Type: req.Type, Provider: req.Provider, IsActive: req.IsActive}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		patch.Name = &name
	}
	if len(req.Config) > 0 {
		cfg, ok := configString(req.Config)
		if !ok {
			writeError(w, http.StatusBadRequest, "config must be valid JSON")
			return
		}
		patch.Config = cfg
		patch.ClearConfig = cfg == nil
	}

	pm, err := h.store.UpdatePaymentMethod(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeStoreError(w, h.logger, err, "Payment method")
		return
	}
	writeJSON(w, http.StatusOK, pm)
}

// DeletePaymentMethod removes a payment method no product or subscription
// references.
// DELETE /manage/payment-methods/{id}
func (h *ManageHandler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePaymentMethod(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, h.logger, err, "Payment method")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
