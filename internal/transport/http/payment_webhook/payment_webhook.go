package paymentwebhook

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
	"github.com/shopfabrik/payment-svc/internal/service/models/webhookevent"
	"github.com/shopfabrik/payment-svc/internal/transport/http/httperr"
)

// maxBodySize bounds inbound webhook payloads.
const maxBodySize = 1 << 20

// service is an interface for the service layer.
type service interface {
	IngestWebhook(
		ctx context.Context,
		prov payment.Provider,
		header http.Header,
		body []byte,
	) (*webhookevent.WebhookEvent, *payment.SettlementEvent, error)
	ProcessWebhookEvent(ctx context.Context, journalID int64, event payment.SettlementEvent)
}

type ackResponse struct {
	EventID string `json:"eventId"`
	Status  string `json:"status"`
}

// HandleWebhook authenticates and journals the webhook, acknowledges the
// provider, then runs settlement. The acknowledgment is sent once the
// payload is authenticated and accepted, independent of whether the
// settlement itself succeeds; failures stay on the journal row.
func HandleWebhook(w http.ResponseWriter, r *http.Request, service service) {
	prov, err := payment.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		httperr.Write(w, r, apperr.Validation("unsupported payment provider"))

		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		httperr.Write(w, r, apperr.Validation("failed to read request body"))

		return
	}

	journaled, event, err := service.IngestWebhook(r.Context(), prov, r.Header, body)
	if err != nil {
		httperr.Write(w, r, err)

		return
	}

	httperr.WriteJSON(w, r, http.StatusAccepted, ackResponse{
		EventID: journaled.EventID,
		Status:  "accepted",
	})

	// The webhook is acknowledged; a provider-side disconnect must not
	// cancel the settlement transaction mid-flight.
	service.ProcessWebhookEvent(context.WithoutCancel(r.Context()), journaled.ID, *event)
}
