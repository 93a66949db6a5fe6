package ipaymentrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

// IPaymentRepository is an interface for the payment postgres repository.
type IPaymentRepository interface {
	// Insert persists a new payment attempt. A duplicate transaction id
	// surfaces as a Conflict error.
	Insert(ctx context.Context, p payment.Payment) (payment.Payment, error)

	// GetByTransactionID returns the payment or a NotFound error.
	GetByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error)

	// GetByTransactionIDForUpdate loads the payment under a row lock,
	// serializing concurrent settlement of the same transaction id. Only
	// valid inside a transaction.
	GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*payment.Payment, error)

	// ListByOrderID returns all payment attempts for an order.
	ListByOrderID(ctx context.Context, orderID int64) ([]payment.Payment, error)

	// UpdateStatus sets the payment status and stores the raw provider payload.
	UpdateStatus(ctx context.Context, id int64, status payment.Status, rawResponse json.RawMessage, updatedAt time.Time) error

	// ListStalePending returns pending payments created before the cutoff,
	// for the reconciliation poller.
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]payment.Payment, error)
}
