package iorderitemrepo

import (
	"context"

	"github.com/shopfabrik/payment-svc/internal/service/models/orderitem"
)

// IOrderItemRepository is an interface for the order item postgres repository.
type IOrderItemRepository interface {
	// BulkInsert persists order items and returns them with assigned ids.
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)

	// ListByOrderIDs returns all items belonging to the given orders.
	ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]orderitem.OrderItem, error)
}
