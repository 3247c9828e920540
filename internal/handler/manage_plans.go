package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/subgate/subgate/internal/model"
)

var planSlugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

type createPlanRequest struct {
	ProductID string                 `json:"product_id"`
	Name      string                 `json:"name"`
	Slug      string                 `json:"slug"`
	Price     int64                  `json:"price"`
	Features  string                 `json:"features"`
	Limits    map[string]interface{} `json:"limits"`
	IsActive  *bool                  `json:"is_active"`
}

type updatePlanRequest struct {
	Name     *string                `json:"name"`
	Slug     *string                `json:"slug"`
	Price    *int64                 `json:"price"`
	Features *string                `json:"features"`
	Limits   map[string]interface{} `json:"limits"`
	IsActive *bool                  `json:"is_active"`
}

// ListPlans returns plans, optionally narrowed to one product.
// GET /manage/plans?product_id=
func (h *ManageHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.store.ListPlans(r.Context(), queryString(r, "product_id"), queryBool(r, "active"))
	if err != nil {
		writeStoreError(w, h.logger, err, "Plan")
		return
	}
	writeList(w, plans)
}

// GetPlan returns one plan.
// GET /manage/plans/{id}
func (h *ManageHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, h.logger, err, "Plan")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreatePlan adds a plan to a product.
// POST /manage/plans
func (h *ManageHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.ProductID == "":
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	case req.Name == "":
		writeError(w, http.StatusBadRequest, "name is required")
		return
	case !planSlugPattern.MatchString(req.Slug):
		writeError(w, http.StatusBadRequest, "Invalid slug", "Use lowercase letters, digits, and '-'")
		return
	case req.Price < 0:
		writeError(w, http.StatusBadRequest, "price cannot be negative")
		return
	}
	if _, err := h.store.GetProduct(r.Context(), req.ProductID); err != nil {
		writeStoreError(w, h.logger, err, "Product")
		return
	}

	p := &model.Plan{
		ProductID: req.ProductID,
		Name:      req.Name,
		Slug:      req.Slug,
		Price:     req.Price,
		Features:  req.Features,
		Limits:    req.Limits,
		IsActive:  req.IsActive == nil || *req.IsActive,
	}
	if err := h.store.CreatePlan(r.Context(), p); err != nil {
		writeStoreError(w, h.logger, err, "Plan")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdatePlan applies a partial update to a plan.
// PATCH /manage/plans/{id}
func (h *ManageHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req updatePlanRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Slug != nil && !planSlugPattern.MatchString(*req.Slug) {
		writeError(w, http.StatusBadRequest, "Invalid slug", "Use lowercase letters, digits, and '-'")
		return
	}
	if req.Price != nil && *req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price cannot be negative")
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		req.Name = &name
	}

	p, err := h.store.UpdatePlan(r.Context(), chi.URLParam(r, "id"), model.PlanPatch{
		Name:     req.Name,
		Slug:     req.Slug,
		Price:    req.Price,
		Features: req.Features,
		Limits:   req.Limits,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeStoreError(w, h.logger, err, "Plan")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePlan removes a plan no subscription uses.
// DELETE /manage/plans/{id}
func (h *ManageHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, h.logger, err, "Plan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
