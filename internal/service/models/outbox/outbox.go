package outbox

import (
	"encoding/json"
	"time"

	"github.com/shopfabrik/payment-svc/internal/service/models/money"
	"github.com/shopfabrik/payment-svc/internal/service/models/order"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

// SettledQueueName is the queue settled-payment events are published to.
// The outbox worker declares it before publishing; default-exchange
// publishes to an undeclared queue are dropped silently.
const SettledQueueName = "payments.settled"

// OutboxMessage represents a message pending publication to RabbitMQ.
type OutboxMessage struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// SettledEvent is the payload published for every settled payment.
type SettledEvent struct {
	OrderID       int64            `json:"orderId"`
	OrderStatus   order.Status     `json:"orderStatus"`
	PaymentID     int64            `json:"paymentId"`
	Provider      payment.Provider `json:"provider"`
	TransactionID string           `json:"transactionId"`
	PaymentStatus payment.Status   `json:"paymentStatus"`
	Amount        string           `json:"amount"`
	SettledAt     time.Time        `json:"settledAt"`
}

// NewSettledMessage builds the outbox row for a settled payment.
func NewSettledMessage(p payment.Payment, orderStatus order.Status, now time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(SettledEvent{
		OrderID:       p.OrderID,
		OrderStatus:   orderStatus,
		PaymentID:     p.ID,
		Provider:      p.Provider,
		TransactionID: p.TransactionID,
		PaymentStatus: p.Status,
		Amount:        money.String(p.Amount),
		SettledAt:     now,
	})
	if err != nil {
		return OutboxMessage{}, err
	}

	return OutboxMessage{
		QueueName:   SettledQueueName,
		RoutingKey:  SettledQueueName,
		Payload:     payload,
		ContentType: "application/json",
		MaxRetries:  10,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	}, nil
}
