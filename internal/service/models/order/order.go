package order

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopfabrik/payment-svc/internal/service/models/orderitem"
)

// Status is the order lifecycle state. An order is created pending and is
// mutated only by settlement: pending -> paid or pending -> canceled.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// IsTerminal reports whether the order can no longer change state.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCanceled
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case StatusPending.String():
		return StatusPending, nil
	case StatusPaid.String():
		return StatusPaid, nil
	case StatusCanceled.String():
		return StatusCanceled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Order represents a customer order in the system.
type Order struct {
	ID          int64                 `json:"id"`
	OwnerID     int64                 `json:"ownerId"`
	TotalAmount decimal.Decimal       `json:"totalAmount"`
	Status      Status                `json:"status"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	OrderItems  []orderitem.OrderItem `json:"orderItems"`
}
