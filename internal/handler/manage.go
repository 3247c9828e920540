package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/server/middleware"
	"github.com/subgate/subgate/internal/service"
)

// ManageHandler serves the /manage API used by operators. Every route sits
// behind the admin auth gate.
type ManageHandler struct {
	store    *config.Store
	hasher   service.Hasher
	products *service.ProductService
	logger   *slog.Logger
	now      func() time.Time
}

// NewManageHandler creates a new ManageHandler.
func NewManageHandler(store *config.Store, hasher service.Hasher, logger *slog.Logger) *ManageHandler {
	return &ManageHandler{
		store:    store,
		hasher:   hasher,
		products: service.NewProductService(store, hasher),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// caller returns the authenticated admin. A missing identity means the
// route was mounted without the gate and is reported as a server error.
func (h *ManageHandler) caller(w http.ResponseWriter, r *http.Request) (service.AdminIdentity, bool) {
	id, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		h.logger.Error("admin context missing", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return service.AdminIdentity{}, false
	}
	return id, true
}

// Dashboard returns platform counts.
// GET /manage/dashboard
func (h *ManageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.DashboardStats(r.Context())
	if err != nil {
		writeStoreError(w, h.logger, err, "Dashboard")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
