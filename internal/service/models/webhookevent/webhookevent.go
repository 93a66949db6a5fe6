package webhookevent

import (
	"encoding/json"
	"time"

	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

// WebhookEvent is the journal row written for every authenticated inbound
// webhook. Webhooks are acknowledged before settlement commits, so the
// journal is the operator's surface for events whose processing failed.
type WebhookEvent struct {
	ID            int64            `json:"id"`
	EventID       string           `json:"eventId"`
	Provider      payment.Provider `json:"provider"`
	TransactionID string           `json:"transactionId"`
	Payload       json.RawMessage  `json:"payload"`
	ProcessError  string           `json:"processError,omitempty"`
	ProcessedAt   *time.Time       `json:"processedAt,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}
