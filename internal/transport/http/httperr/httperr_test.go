package httperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
)

func TestWrite(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", apperr.NotFound("order 1 not found"), http.StatusNotFound},
		{"conflict", apperr.Conflict("order already paid"), http.StatusConflict},
		{"validation", apperr.Validation("quantity must be positive"), http.StatusBadRequest},
		{"provider", apperr.Provider(errors.New("timeout"), "cardgate is unreachable"), http.StatusBadGateway},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			Write(rec, req, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected json content type, got %q", ct)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error == "" {
				t.Fatal("expected an error message in the body")
			}
		})
	}
}
