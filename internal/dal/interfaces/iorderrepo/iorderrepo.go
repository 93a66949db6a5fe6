package iorderrepo

import (
	"context"
	"time"

	"github.com/shopfabrik/payment-svc/internal/service/models/order"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	// Insert persists a new order and returns it with its assigned id.
	Insert(ctx context.Context, o order.Order) (order.Order, error)

	// GetByID returns the order or a NotFound error.
	GetByID(ctx context.Context, id int64) (*order.Order, error)

	// UpdateStatusIfPending moves a pending order to the given status.
	// Returns false when the order exists but is no longer pending, so a
	// paid or canceled order is never overwritten.
	UpdateStatusIfPending(ctx context.Context, id int64, status order.Status, updatedAt time.Time) (bool, error)

	// Query retrieves orders based on filter criteria.
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}
