package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/model"
)

const maxBodyBytes = 1 << 20

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error": "..."} envelope. An optional hint is added
// when non-empty.
func writeError(w http.ResponseWriter, code int, message string, hint ...string) {
	resp := model.ErrorResponse{Error: message}
	if len(hint) > 0 {
		resp.Hint = hint[0]
	}
	writeJSON(w, code, resp)
}

// writeList writes items in the standard list envelope.
func writeList[T any](w http.ResponseWriter, items []T) {
	writeJSON(w, http.StatusOK, model.NewListResponse(items))
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// queryString extracts a string query parameter.
func queryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// queryBool extracts a boolean query parameter. Returns false if the parameter
// is missing or not "true"/"1".
func queryBool(r *http.Request, key string) bool {
	val := r.URL.Query().Get(key)
	return val == "true" || val == "1"
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == strings.TrimSpace(email)
}

// writeStoreError maps store errors to HTTP responses. Anything it does not
// recognize is logged and reported as a generic 500.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, err error, resource string) {
	var dup *config.DuplicateSubscriptionError
	switch {
	case errors.As(err, &dup):
		writeError(w, http.StatusConflict, "User already has a subscription for this product",
			fmt.Sprintf("Update subscription %s (status %s) instead of creating a new one", dup.ExistingID, dup.Status))
	case errors.Is(err, config.ErrNotFound):
		writeError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, config.ErrConflict):
		writeError(w, http.StatusConflict, resource+" already exists", conflictHint(err))
	case errors.Is(err, config.ErrInUse):
		writeError(w, http.StatusBadRequest, "Cannot delete "+strings.ToLower(resource)+" while it is in use", err.Error())
	case errors.Is(err, config.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, "Invalid reference", err.Error())
	case errors.Is(err, config.ErrInvalidState):
		writeError(w, http.StatusConflict, resource+" cannot be changed in its current state", err.Error())
	default:
		logger.Error("request failed", "resource", resource, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// conflictHint names the column of a uniqueness violation when the driver
// message reveals it.
func conflictHint(err error) string {
	msg := strings.ToLower(err.Error())
	for _, col := range []string{"email", "slug", "api_key_hash", "user_id"} {
		if strings.Contains(msg, col) {
			return "Duplicate " + col
		}
	}
	return ""
}
