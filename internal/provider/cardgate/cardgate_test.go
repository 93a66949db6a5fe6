package cardgate

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shopfabrik/payment-svc/internal/provider"
	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

func testStrategy(baseURL string) *Strategy {
	return &Strategy{
		httpClient:    http.DefaultClient,
		baseURL:       baseURL,
		apiKey:        "sk_test",
		webhookSecret: "whsec_test",
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

func TestParseWebhook(t *testing.T) {
	s := testStrategy("")
	body := []byte(`{"event_id":"evt_1","transaction_id":"pi_1","status":"succeeded"}`)

	t.Run("valid signature yields a settlement event", func(t *testing.T) {
		header := http.Header{}
		header.Set(SignatureHeader, sign("whsec_test", body))

		event, err := s.ParseWebhook(header, body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.TransactionID != "pi_1" {
			t.Fatalf("expected transaction pi_1, got %s", event.TransactionID)
		}
		if event.Status != payment.StatusCompleted {
			t.Fatalf("expected completed, got %s", event.Status)
		}
	})

	t.Run("missing signature header fails closed", func(t *testing.T) {
		_, err := s.ParseWebhook(http.Header{}, body)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected a validation error, got %v", err)
		}
	})

	t.Run("wrong signature fails closed", func(t *testing.T) {
		header := http.Header{}
		header.Set(SignatureHeader, sign("wrong_secret", body))

		_, err := s.ParseWebhook(header, body)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected a validation error, got %v", err)
		}
	})

	t.Run("signed but malformed payload is rejected", func(t *testing.T) {
		malformed := []byte(`{"transaction_id":`)
		header := http.Header{}
		header.Set(SignatureHeader, sign("whsec_test", malformed))

		_, err := s.ParseWebhook(header, malformed)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected a validation error, got %v", err)
		}
	})

	t.Run("signed payload without a transaction id is rejected", func(t *testing.T) {
		empty := []byte(`{"event_id":"evt_2","status":"succeeded"}`)
		header := http.Header{}
		header.Set(SignatureHeader, sign("whsec_test", empty))

		_, err := s.ParseWebhook(header, empty)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected a validation error, got %v", err)
		}
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		unknown := []byte(`{"transaction_id":"pi_1","status":"refunded"}`)
		header := http.Header{}
		header.Set(SignatureHeader, sign("whsec_test", unknown))

		_, err := s.ParseWebhook(header, unknown)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected a validation error, got %v", err)
		}
	})
}

func TestCreateIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("opens an intent and returns its id pending", func(t *testing.T) {
		var gotAuth string
		var gotBody map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v1/intents" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			gotAuth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("failed to decode request body: %v", err)
			}
			w.Write([]byte(`{"id":"pi_42","status":"created"}`))
		}))
		defer server.Close()

		intent, err := testStrategy(server.URL).CreateIntent(ctx, provider.CreateIntentRequest{
			OrderID: 7,
			Amount:  decimal.RequireFromString("55.00"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if intent.TransactionID != "pi_42" {
			t.Fatalf("expected transaction pi_42, got %s", intent.TransactionID)
		}
		if intent.Status != payment.StatusPending {
			t.Fatalf("expected pending, got %s", intent.Status)
		}
		if gotAuth != "Bearer sk_test" {
			t.Fatalf("expected bearer auth, got %q", gotAuth)
		}
		if gotBody["amount_cents"] != float64(5500) {
			t.Fatalf("expected 5500 minor units, got %v", gotBody["amount_cents"])
		}
		if gotBody["reference"] != "order-7" {
			t.Fatalf("expected reference order-7, got %v", gotBody["reference"])
		}
	})

	t.Run("api error surfaces as a provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := testStrategy(server.URL).CreateIntent(ctx, provider.CreateIntentRequest{
			OrderID: 7,
			Amount:  decimal.RequireFromString("55.00"),
		})
		if apperr.KindOf(err) != apperr.KindProvider {
			t.Fatalf("expected a provider error, got %v", err)
		}
	})

	t.Run("unknown intent status surfaces as a provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"pi_42","status":"on_hold"}`))
		}))
		defer server.Close()

		_, err := testStrategy(server.URL).CreateIntent(ctx, provider.CreateIntentRequest{
			OrderID: 7,
			Amount:  decimal.RequireFromString("55.00"),
		})
		if apperr.KindOf(err) != apperr.KindProvider {
			t.Fatalf("expected a provider error, got %v", err)
		}
	})
}

func TestVerifyTransaction(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/intents/pi_42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"pi_42","status":"voided"}`))
	}))
	defer server.Close()

	event, err := testStrategy(server.URL).VerifyTransaction(ctx, "pi_42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Status != payment.StatusCanceled {
		t.Fatalf("expected canceled, got %s", event.Status)
	}
	if event.TransactionID != "pi_42" {
		t.Fatalf("expected transaction pi_42, got %s", event.TransactionID)
	}
}

func TestMapStatus(t *testing.T) {
	cases := map[string]payment.Status{
		"created":    payment.StatusPending,
		"processing": payment.StatusPending,
		"succeeded":  payment.StatusCompleted,
		"failed":     payment.StatusFailed,
		"voided":     payment.StatusCanceled,
	}
	for in, want := range cases {
		got, err := mapStatus(in)
		if err != nil {
			t.Fatalf("mapStatus(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("mapStatus(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := mapStatus("chargeback"); err == nil {
		t.Fatal("expected an error for an unknown status")
	}
}
