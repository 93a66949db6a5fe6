package httperr

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Write maps a service error onto an HTTP status and writes it as JSON.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindProvider:
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(errorResponse{
		Error: err.Error(),
		Kind:  kind.String(),
	}); encodeErr != nil {
		slog.ErrorContext(r.Context(), "error writing error response", "error", encodeErr)
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "error writing response", "error", err)
	}
}
