package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

// CreateIntentRequest asks a provider to open a payment intent for an
// order. Amount is a scale-2 decimal; strategies convert to minor units
// at their own boundary.
type CreateIntentRequest struct {
	OrderID  int64
	Amount   decimal.Decimal
	Metadata map[string]string
}

// Intent is the provider's answer to CreateIntent. Status may already be
// terminal for providers that settle synchronously.
type Intent struct {
	TransactionID string
	Status        payment.Status
	RawPayload    json.RawMessage
}

// Strategy is the uniform capability set implemented once per provider.
// Each strategy maps its provider's status vocabulary onto the canonical
// payment statuses and performs authenticity checks internally: an
// unverifiable inbound payload never reaches the settlement engine.
type Strategy interface {
	Name() payment.Provider

	// CreateIntent opens a payment intent with the provider. It performs
	// a network call and must never be invoked while holding a database
	// transaction.
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)

	// ParseWebhook authenticates a provider-signed webhook and extracts
	// the settlement event. It fails closed on any verification error.
	ParseWebhook(header http.Header, body []byte) (*payment.SettlementEvent, error)

	// VerifyTransaction pulls the current state of a transaction from the
	// provider for reconciliation.
	VerifyTransaction(ctx context.Context, transactionID string) (*payment.SettlementEvent, error)
}
