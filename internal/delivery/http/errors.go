package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// errorBody is the JSON error payload.
type errorBody struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error payload with the given status code.
func writeJSONError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorBody{Error: code, Details: details})
}

// writeServiceError maps a domain error to its HTTP status. Unexpected errors
// are logged and reported as 500 without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Details: "invalid input", Fields: verr.Fields})
	case errors.Is(err, entity.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, entity.ErrInsufficientStock):
		writeJSONError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, entity.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, entity.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "")
	case errors.Is(err, entity.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "")
	case errors.Is(err, context.Canceled):
		slog.Info("Request cancelled", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()))
		writeJSONError(w, http.StatusServiceUnavailable, "cancelled", "")
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()), "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
