package listpayments

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
	"github.com/shopfabrik/payment-svc/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	GetPayments(ctx context.Context, orderID int64) ([]payment.Payment, error)
}

// ListPayments handles the list payments request for an order.
func ListPayments(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httperr.Write(w, r, apperr.Validation("order id must be an integer"))

		return
	}

	payments, err := service.GetPayments(r.Context(), orderID)
	if err != nil {
		httperr.Write(w, r, err)

		return
	}

	httperr.WriteJSON(w, r, http.StatusOK, payments)
}
