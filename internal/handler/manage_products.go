package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/subgate/subgate/internal/model"
	"github.com/subgate/subgate/internal/service"
)

type createProductRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

type updateProductRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

// productWithKey is returned when a plaintext key is issued. The key is
// never retrievable afterwards.
type productWithKey struct {
	*model.Product
	APIKey string `json:"api_key"`
}

type setPaymentMethodsRequest struct {
	PaymentMethods []model.ProductPaymentMethodLink `json:"payment_methods"`
}

// ListProducts returns every product with its plans.
// GET /manage/products
func (h *ManageHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProductsWithPlans(r.Context())
	if err != nil {
		writeStoreError(w, h.logger, err, "Product")
		return
	}
	writeList(w, products)
}

// GetProduct returns a product with its plans and subscriptions.
// GET /manage/products/{id}
func (h *ManageHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProductDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, h.logger, err, "Product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProduct provisions a product and returns its API key once.
// POST /manage/products
func (h *ManageHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p, key, err := h.products.Create(r.Context(), req.ID, req.Name, req.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidProductID):
			writeError(w, http.StatusBadRequest, "Invalid product id", err.Error())
		case errors.Is(err, service.ErrMalformedCredential):
			writeError(w, http.StatusBadRequest, "Invalid API key", "The key must start with the product id followed by '_'")
		case errors.Is(err, service.ErrSecretTooLong):
			writeError(w, http.StatusBadRequest, "Invalid API key", "The key must be at most 72 bytes")
		default:
			writeStoreError(w, h.logger, err, "Product")
		}
		return
	}
	h.logger.Info("product created", "product_id", p.ID)
	writeJSON(w, http.StatusCreated, productWithKey{Product: p, APIKey: key})
}

// UpdateProduct renames or enables/disables a product.
// PATCH /manage/products/{id}
func (h *ManageHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
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

	p, err := h.store.UpdateProduct(r.Context(), chi.URLParam(r, "id"), model.ProductPatch{
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeStoreError(w, h.logger, err, "Product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RegenerateKey issues a new API key for the product. The previous key stops
// working immediately.
// POST /manage/products/{id}/regenerate-key
func (h *ManageHandler) RegenerateKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key, err := h.products.RotateKey(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.logger, err, "Product")
		return
	}
	h.logger.Info("product api key regenerated", "product_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "api_key": key})
}

// DeleteProduct removes a product without plans or subscriptions.
// DELETE /manage/products/{id}
func (h *ManageHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		writeStoreError(w, h.logger, err, "Product")
		return
	}
	h.logger.Info("product deleted", "product_id", id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListProductPaymentMethods returns the product's full payment method
// configuration, including disabled methods.
// GET /manage/products/{id}/payment-methods
func (h *ManageHandler) ListProductPaymentMethods(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetProduct(r.Context(), id); err != nil {
		writeStoreError(w, h.logger, err, "Product")
		return
	}
	methods, err := h.store.ListProductPaymentMethods(r.Context(), id, false)
	if err != nil {
		writeStoreError(w, h.logger, err, "Payment method")
		return
	}
	writeList(w, methods)
}

// SetProductPaymentMethods replaces the product's payment method
// configuration.
// PUT /manage/products/{id}/payment-methods
func (h *ManageHandler) SetProductPaymentMethods(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setPaymentMethodsRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defaults := 0
	seen := make(map[string]bool, len(req.PaymentMethods))
	for _, l := range req.PaymentMethods {
		if l.PaymentMethodID == "" {
			writeError(w, http.StatusBadRequest, "payment_method_id is required for every entry")
			return
		}
		if seen[l.PaymentMethodID] {
			writeError(w, http.StatusBadRequest, "Duplicate payment method "+l.PaymentMethodID)
			return
		}
		seen[l.PaymentMethodID] = true
		if l.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		writeError(w, http.StatusBadRequest, "At most one payment method can be the default")
		return
	}

	if err := h.store.SetProductPaymentMethods(r.Context(), id, req.PaymentMethods); err != nil {
		writeStoreError(w, h.logger, err, "Product")
		return
	}
	methods, err := h.store.ListProductPaymentMethods(r.Context(), id, false)
	if err != nil {
		writeStoreError(w, h.logger, err, "Payment method")
		return
	}
	writeList(w, methods)
}
