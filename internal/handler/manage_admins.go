package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/subgate/subgate/internal/model"
	"github.com/subgate/subgate/internal/service"
)

const minPasswordLength = 8

// passwordProblem returns the validation message for an unusable password,
// or "" when it is acceptable.
func passwordProblem(password string) string {
	switch {
	case len(password) < minPasswordLength:
		return "Password must be at least 8 characters"
	case len(password) > service.MaxSecretLength:
		return "Password must be at most 72 bytes"
	}
	return ""
}

type createAdminRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name"`
	Role     model.AdminRole `json:"role"`
}

type updateAdminRequest struct {
	Email    *string          `json:"email"`
	Password *string          `json:"password"`
	Name     *string          `json:"name"`
	Role     *model.AdminRole `json:"role"`
	IsActive *bool            `json:"is_active"`
}

// writeAuthzError maps an authorization refusal to its response.
func writeAuthzError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSelfDeletion):
		writeError(w, http.StatusBadRequest, "Cannot delete yourself")
	default:
		writeError(w, http.StatusForbidden, "Super admin access required")
	}
}

// ListAdmins returns every admin account.
// GET /manage/admins
func (h *ManageHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeStoreError(w, h.logger, err, "Admin")
		return
	}
	writeList(w, admins)
}

// GetAdmin returns one admin account.
// GET /manage/admins/{id}
func (h *ManageHandler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.store.GetAdmin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, h.logger, err, "Admin")
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// CreateAdmin adds an admin account. The route also requires a super admin;
// the check is repeated here so the handler is safe on its own.
// POST /manage/admins
func (h *ManageHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := service.Authorize(caller, service.Action{Op: service.OpCreateAdmin}); err != nil {
		writeAuthzError(w, err)
		return
	}

	var req createAdminRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !validEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if msg := passwordProblem(req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Role == "" {
		req.Role = model.RoleAdmin
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid role", "Use ADMIN or SUPER_ADMIN")
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash admin password", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	admin := &model.Admin{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		IsActive:     true,
	}
	if err := h.store.CreateAdmin(r.Context(), admin); err != nil {
		writeStoreError(w, h.logger, err, "Admin")
		return
	}
	h.logger.Info("admin created", "admin_id", admin.ID, "role", admin.Role, "by", caller.AdminID)
	writeJSON(w, http.StatusCreated, admin)
}

// UpdateAdmin edits an admin account. Admins may change their own name,
// email, and password; anything else needs a super admin.
// PATCH /manage/admins/{id}
func (h *ManageHandler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "id")

	var req updateAdminRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	action := service.Action{
		Op:               service.OpUpdateAdmin,
		TargetID:         targetID,
		ChangesPrivilege: req.Role != nil || req.IsActive != nil,
	}
	if err := service.Authorize(caller, action); err != nil {
		writeAuthzError(w, err)
		return
	}

	var patch model.AdminPatch
	if req.Email != nil {
		if !validEmail(*req.Email) {
			writeError(w, http.StatusBadRequest, "A valid email is required")
			return
		}
		patch.Email = req.Email
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid role", "Use ADMIN or SUPER_ADMIN")
			return
		}
		patch.Role = req.Role
	}
	patch.IsActive = req.IsActive
	if req.Password != nil {
		if msg := passwordProblem(*req.Password); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		hash, err := h.hasher.Hash(*req.Password)
		if err != nil {
			h.logger.Error("hash admin password", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		patch.PasswordHash = &hash
	}

	admin, err := h.store.UpdateAdmin(r.Context(), targetID, patch)
	if err != nil {
		writeStoreError(w, h.logger, err, "Admin")
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// DeleteAdmin removes an admin account. Deleting yourself is refused before
// the role is checked.
// DELETE /manage/admins/{id}
func (h *ManageHandler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "id")
	if err := service.Authorize(caller, service.Action{Op: service.OpDeleteAdmin, TargetID: targetID}); err != nil {
		writeAuthzError(w, err)
		return
	}

	if err := h.store.DeleteAdmin(r.Context(), targetID); err != nil {
		writeStoreError(w, h.logger, err, "Admin")
		return
	}
	h.logger.Info("admin deleted", "admin_id", targetID, "by", caller.AdminID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
