package createorder

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/order"
	"github.com/shopfabrik/payment-svc/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, model order.CreateOrderModel) (*order.Order, error)
}

// CreateOrder handles the create order request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	var model order.CreateOrderModel
	if err := json.NewDecoder(r.Body).Decode(&model); err != nil {
		httperr.Write(w, r, apperr.Validation("failed to decode request body"))

		return
	}

	created, err := service.CreateOrder(r.Context(), model)
	if err != nil {
		httperr.Write(w, r, err)

		return
	}

	httperr.WriteJSON(w, r, http.StatusCreated, created)
}
