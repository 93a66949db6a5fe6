package iwebhookeventrepo

import (
	"context"
	"time"

	"github.com/shopfabrik/payment-svc/internal/service/models/webhookevent"
)

// IWebhookEventRepository is an interface for the webhook event journal.
type IWebhookEventRepository interface {
	// Insert journals an authenticated inbound webhook.
	Insert(ctx context.Context, ev webhookevent.WebhookEvent) (webhookevent.WebhookEvent, error)

	// MarkProcessed records the settlement outcome for a journaled event.
	// processError is empty on success.
	MarkProcessed(ctx context.Context, id int64, processError string, processedAt time.Time) error
}
