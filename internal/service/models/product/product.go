package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog aggregate consumed by order validation and
// mutated only by the settlement engine's guarded stock decrement.
type Product struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
