package createpayment

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
	"github.com/shopfabrik/payment-svc/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	CreatePayment(
		ctx context.Context,
		orderID int64,
		prov payment.Provider,
		metadata map[string]string,
	) (*payment.Payment, error)
}

type createPaymentRequest struct {
	OrderID  int64             `json:"orderId"`
	Provider string            `json:"provider"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreatePayment handles the create payment request.
func CreatePayment(w http.ResponseWriter, r *http.Request, service service) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, r, apperr.Validation("failed to decode request body"))

		return
	}

	prov, err := payment.ParseProvider(req.Provider)
	if err != nil {
		httperr.Write(w, r, apperr.Validation("unsupported payment provider: %s", req.Provider))

		return
	}

	p, err := service.CreatePayment(r.Context(), req.OrderID, prov, req.Metadata)
	if err != nil {
		httperr.Write(w, r, err)

		return
	}

	httperr.WriteJSON(w, r, http.StatusCreated, p)
}
