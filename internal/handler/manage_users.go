package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/subgate/subgate/internal/model"
)

type createUserRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type updateUserRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

// ListUsers returns users, optionally filtered by email substring or
// product.
// GET /manage/users?search=&product_id=
func (h *ManageHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context(), model.UserFilter{
		Search:    queryString(r, "search"),
		ProductID: queryString(r, "product_id"),
	})
	if err != nil {
		writeStoreError(w, h.logger, err, "User")
		return
	}
	writeList(w, users)
}

// GetUser returns a user with every subscription they hold.
// GET /manage/users/{id}
func (h *ManageHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetUserDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, h.logger, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// CreateUser registers an end user by hand. The ID is the one used by the
// product's identity provider.
// POST /manage/users
func (h *ManageHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "A valid email is required")
		return
	}

	u := &model.User{ID: req.ID, Email: req.Email, Name: strings.TrimSpace(req.Name)}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		writeStoreError(w, h.logger, err, "User")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// UpdateUser changes a user's email or name.
// PATCH /manage/users/{id}
func (h *ManageHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Email != nil && !validEmail(*req.Email) {
		writeError(w, http.StatusBadRequest, "A valid email is required")
		return
	}

	u, err := h.store.UpdateUser(r.Context(), chi.URLParam(r, "id"), req.Email, req.Name)
	if err != nil {
		writeStoreError(w, h.logger, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser removes a user without subscriptions.
// DELETE /manage/users/{id}
func (h *ManageHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, h.logger, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
