package paymentwebhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
	"github.com/shopfabrik/payment-svc/internal/service/models/webhookevent"

	"github.com/go-chi/chi/v5"
)

type fakeService struct {
	ingestErr error

	processedJournalID int64
	processedEvent     *payment.SettlementEvent
	processedCtx       context.Context
}

func (s *fakeService) IngestWebhook(
	_ context.Context,
	prov payment.Provider,
	_ http.Header,
	body []byte,
) (*webhookevent.WebhookEvent, *payment.SettlementEvent, error) {
	if s.ingestErr != nil {
		return nil, nil, s.ingestErr
	}

	return &webhookevent.WebhookEvent{
			ID:            7,
			EventID:       "evt_7",
			Provider:      prov,
			TransactionID: "pi_1",
			Payload:       body,
		}, &payment.SettlementEvent{
			TransactionID: "pi_1",
			Status:        payment.StatusCompleted,
			RawPayload:    body,
		}, nil
}

func (s *fakeService) ProcessWebhookEvent(ctx context.Context, journalID int64, event payment.SettlementEvent) {
	s.processedCtx = ctx
	s.processedJournalID = journalID
	s.processedEvent = &event
}

func doRequest(t *testing.T, service *fakeService, providerParam, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Post("/api/payments/webhook/{provider}", func(w http.ResponseWriter, r *http.Request) {
		HandleWebhook(w, r, service)
	})

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/payments/webhook/"+providerParam,
		strings.NewReader(body),
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestHandleWebhook(t *testing.T) {
	t.Run("accepted webhook is acknowledged and processed", func(t *testing.T) {
		service := &fakeService{}

		rec := doRequest(t, service, "cardgate", `{"transaction_id":"pi_1","status":"succeeded"}`)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		var ack ackResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
			t.Fatalf("failed to decode ack: %v", err)
		}
		if ack.EventID != "evt_7" || ack.Status != "accepted" {
			t.Fatalf("unexpected ack %+v", ack)
		}
		if service.processedJournalID != 7 {
			t.Fatalf("expected journal id 7 processed, got %d", service.processedJournalID)
		}
		if service.processedEvent == nil || service.processedEvent.Status != payment.StatusCompleted {
			t.Fatalf("expected the parsed event to reach settlement, got %+v", service.processedEvent)
		}
	})

	t.Run("settlement survives a provider disconnect after the ack", func(t *testing.T) {
		service := &fakeService{}

		router := chi.NewRouter()
		router.Post("/api/payments/webhook/{provider}", func(w http.ResponseWriter, r *http.Request) {
			HandleWebhook(w, r, service)
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(
			http.MethodPost,
			"/api/payments/webhook/cardgate",
			strings.NewReader(`{"transaction_id":"pi_1","status":"succeeded"}`),
		).WithContext(ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		if service.processedCtx == nil {
			t.Fatal("expected settlement to run")
		}
		if err := service.processedCtx.Err(); err != nil {
			t.Fatalf("settlement context must not carry the request cancellation, got %v", err)
		}
	})

	t.Run("unknown provider is a 400", func(t *testing.T) {
		service := &fakeService{}

		rec := doRequest(t, service, "paypal", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if service.processedEvent != nil {
			t.Fatal("nothing may be processed for an unknown provider")
		}
	})

	t.Run("rejected webhook is not acknowledged", func(t *testing.T) {
		service := &fakeService{
			ingestErr: apperr.Validation("cardgate webhook signature verification failed"),
		}

		rec := doRequest(t, service, "cardgate", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if service.processedEvent != nil {
			t.Fatal("a rejected webhook must not reach settlement")
		}
	})
}
