package cardgate

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/shopfabrik/payment-svc/internal/provider"
	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/money"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Cardgate-Signature"

// Strategy talks to the Cardgate card processor. Cardgate settles
// asynchronously: intents start in "processing" and terminal outcomes
// arrive over signed webhooks.
type Strategy struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	webhookSecret string
}

// NewStrategy creates a Cardgate strategy configured from viper and env.
func NewStrategy() *Strategy {
	timeoutSeconds := viper.GetInt("providers.cardgate.timeout_seconds")
	if timeoutSeconds == 0 {
		timeoutSeconds = 15
	}

	return &Strategy{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		baseURL:       viper.GetString("providers.cardgate.base_url"),
		apiKey:        os.Getenv("CARDGATE_API_KEY"),
		webhookSecret: os.Getenv("CARDGATE_WEBHOOK_SECRET"),
	}
}

func (s *Strategy) Name() payment.Provider {
	return payment.ProviderCardgate
}

type intentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type webhookPayload struct {
	EventID       string `json:"event_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// CreateIntent opens a payment intent with Cardgate.
func (s *Strategy) CreateIntent(
	ctx context.Context,
	req provider.CreateIntentRequest,
) (*provider.Intent, error) {
	body, err := json.Marshal(map[string]any{
		"amount_cents": money.ToCents(req.Amount),
		"currency":     "EUR",
		"reference":    fmt.Sprintf("order-%d", req.OrderID),
		"metadata":     req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal intent request: %w", err)
	}

	raw, err := s.do(ctx, http.MethodPost, "/v1/intents", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp intentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Provider(err, "cardgate returned a malformed intent response")
	}

	status, err := mapStatus(resp.Status)
	if err != nil {
		return nil, apperr.Provider(err, "cardgate returned an unknown intent status %q", resp.Status)
	}

	return &provider.Intent{
		TransactionID: resp.ID,
		Status:        status,
		RawPayload:    raw,
	}, nil
}

// ParseWebhook verifies the HMAC signature and extracts the settlement
// event. An invalid or missing signature fails closed.
func (s *Strategy) ParseWebhook(header http.Header, body []byte) (*payment.SettlementEvent, error) {
	signature := header.Get(SignatureHeader)
	if signature == "" {
		return nil, apperr.Validation("cardgate webhook is missing the signature header")
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, apperr.Validation("cardgate webhook signature verification failed")
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, apperr.Validation("cardgate webhook payload is malformed")
	}
	if p.TransactionID == "" {
		return nil, apperr.Validation("cardgate webhook payload has no transaction id")
	}

	status, err := mapStatus(p.Status)
	if err != nil {
		return nil, apperr.Validation("cardgate webhook has an unknown status %q", p.Status)
	}

	return &payment.SettlementEvent{
		TransactionID: p.TransactionID,
		Status:        status,
		RawPayload:    body,
	}, nil
}

// VerifyTransaction pulls the current state of an intent.
func (s *Strategy) VerifyTransaction(
	ctx context.Context,
	transactionID string,
) (*payment.SettlementEvent, error) {
	raw, err := s.do(ctx, http.MethodGet, "/v1/intents/"+transactionID, nil)
	if err != nil {
		return nil, err
	}

	var resp intentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Provider(err, "cardgate returned a malformed intent response")
	}

	status, err := mapStatus(resp.Status)
	if err != nil {
		return nil, apperr.Provider(err, "cardgate returned an unknown intent status %q", resp.Status)
	}

	return &payment.SettlementEvent{
		TransactionID: resp.ID,
		Status:        status,
		RawPayload:    raw,
	}, nil
}

func (s *Strategy) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Provider(err, "cardgate request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Provider(err, "cardgate response read failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.Provider(
			fmt.Errorf("cardgate error %d: %s", resp.StatusCode, string(raw)),
			"cardgate rejected the request",
		)
	}

	return raw, nil
}

// mapStatus maps Cardgate's status vocabulary onto the canonical one.
func mapStatus(s string) (payment.Status, error) {
	switch s {
	case "created", "processing":
		return payment.StatusPending, nil
	case "succeeded":
		return payment.StatusCompleted, nil
	case "failed":
		return payment.StatusFailed, nil
	case "voided":
		return payment.StatusCanceled, nil
	default:
		return "", payment.ErrInvalidStatus
	}
}
