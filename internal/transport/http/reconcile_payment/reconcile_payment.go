package reconcilepayment

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
	"github.com/shopfabrik/payment-svc/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	Reconcile(ctx context.Context, transactionID string) (*payment.Payment, error)
}

// ReconcilePayment handles the manual payment verification request.
func ReconcilePayment(w http.ResponseWriter, r *http.Request, service service) {
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		httperr.Write(w, r, apperr.Validation("transaction id is required"))

		return
	}

	p, err := service.Reconcile(r.Context(), transactionID)
	if err != nil {
		httperr.Write(w, r, err)

		return
	}

	httperr.WriteJSON(w, r, http.StatusOK, p)
}
