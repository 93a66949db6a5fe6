package walletio

import (
	"bytes"
	"context"
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

// Strategy talks to the Walletio mobile-wallet processor. Walletio often
// captures synchronously, and it does not sign its webhook callbacks, so
// its settlement path is pull verification only.
type Strategy struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewStrategy creates a Walletio strategy configured from viper and env.
func NewStrategy() *Strategy {
	timeoutSeconds := viper.GetInt("providers.walletio.timeout_seconds")
	if timeoutSeconds == 0 {
		timeoutSeconds = 15
	}

	return &Strategy{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		baseURL: viper.GetString("providers.walletio.base_url"),
		apiKey:  os.Getenv("WALLETIO_API_KEY"),
	}
}

func (s *Strategy) Name() payment.Provider {
	return payment.ProviderWalletio
}

type chargeResponse struct {
	ChargeID string `json:"charge_id"`
	State    string `json:"state"`
}

// CreateIntent creates a charge. The returned state may already be
// CAPTURED, in which case the caller settles immediately.
func (s *Strategy) CreateIntent(
	ctx context.Context,
	req provider.CreateIntentRequest,
) (*provider.Intent, error) {
	body, err := json.Marshal(map[string]any{
		"amount_minor": money.ToCents(req.Amount),
		"currency":     "EUR",
		"order_ref":    fmt.Sprintf("order-%d", req.OrderID),
		"metadata":     req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	raw, err := s.do(ctx, http.MethodPost, "/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp chargeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Provider(err, "walletio returned a malformed charge response")
	}

	status, err := mapState(resp.State)
	if err != nil {
		return nil, apperr.Provider(err, "walletio returned an unknown charge state %q", resp.State)
	}

	return &provider.Intent{
		TransactionID: resp.ChargeID,
		Status:        status,
		RawPayload:    raw,
	}, nil
}

// ParseWebhook always fails closed: Walletio callbacks carry no
// signature, so their content cannot be authenticated. Walletio payments
// settle through pull verification instead.
func (s *Strategy) ParseWebhook(_ http.Header, _ []byte) (*payment.SettlementEvent, error) {
	return nil, apperr.Validation("walletio webhooks are unsigned and cannot be verified")
}

// VerifyTransaction pulls the current state of a charge.
func (s *Strategy) VerifyTransaction(
	ctx context.Context,
	transactionID string,
) (*payment.SettlementEvent, error) {
	raw, err := s.do(ctx, http.MethodGet, "/v1/charges/"+transactionID, nil)
	if err != nil {
		return nil, err
	}

	var resp chargeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Provider(err, "walletio returned a malformed charge response")
	}

	status, err := mapState(resp.State)
	if err != nil {
		return nil, apperr.Provider(err, "walletio returned an unknown charge state %q", resp.State)
	}

	return &payment.SettlementEvent{
		TransactionID: resp.ChargeID,
		Status:        status,
		RawPayload:    raw,
	}, nil
}

func (s *Strategy) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("X-Api-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Provider(err, "walletio request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Provider(err, "walletio response read failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.Provider(
			fmt.Errorf("walletio error %d: %s", resp.StatusCode, string(raw)),
			"walletio rejected the request",
		)
	}

	return raw, nil
}

// mapState maps Walletio's state vocabulary onto the canonical one.
func mapState(s string) (payment.Status, error) {
	switch s {
	case "AUTHORIZED":
		return payment.StatusPending, nil
	case "CAPTURED":
		return payment.StatusCompleted, nil
	case "DECLINED":
		return payment.StatusFailed, nil
	case "REVERSED":
		return payment.StatusCanceled, nil
	default:
		return "", payment.ErrInvalidStatus
	}
}
