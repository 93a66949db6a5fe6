package payment

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the payment lifecycle state. completed, failed and canceled
// are terminal: a payment attempt never changes after reaching one.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

var ErrInvalidStatus = errors.New("invalid payment status")

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// IsTerminal reports whether the status ends the payment attempt.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case StatusPending.String():
		return StatusPending, nil
	case StatusCompleted.String():
		return StatusCompleted, nil
	case StatusFailed.String():
		return StatusFailed, nil
	case StatusCanceled.String():
		return StatusCanceled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Provider identifies an external payment provider.
type Provider string

const (
	ProviderCardgate Provider = "cardgate"
	ProviderWalletio Provider = "walletio"
)

var ErrInvalidProvider = errors.New("invalid payment provider")

func (p Provider) String() string {
	return string(p)
}

func (p Provider) Value() (driver.Value, error) {
	return p.String(), nil
}

func ParseProvider(s string) (Provider, error) {
	switch s {
	case ProviderCardgate.String():
		return ProviderCardgate, nil
	case ProviderWalletio.String():
		return ProviderWalletio, nil
	default:
		return "", ErrInvalidProvider
	}
}

// Payment represents one attempt to pay an order. A retried payment is a
// new row with a new transaction id; only status and raw response mutate
// in place.
type Payment struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"orderId"`
	Provider      Provider        `json:"provider"`
	TransactionID string          `json:"transactionId"`
	Status        Status          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	RawResponse   json.RawMessage `json:"rawResponse,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// SettlementEvent is a terminal provider outcome funneled into the
// settlement engine, from either the webhook or the reconcile path.
type SettlementEvent struct {
	TransactionID string          `json:"transactionId"`
	Status        Status          `json:"status"`
	RawPayload    json.RawMessage `json:"rawPayload,omitempty"`
}
