package iproductrepo

import (
	"context"

	"github.com/shopfabrik/payment-svc/internal/service/models/product"
)

// IProductRepository is an interface for the product postgres repository.
type IProductRepository interface {
	// ListByIDs returns the products with the given ids.
	ListByIDs(ctx context.Context, ids []int64) ([]product.Product, error)

	// DecrementStock conditionally decrements stock by quantity. It returns
	// false without mutating anything when current stock is insufficient.
	DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error)
}
