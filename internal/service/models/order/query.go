package order

// QueryOrdersModel represents filter parameters for querying orders.
type QueryOrdersModel struct {
	Ids      []int64 `json:"ids,omitempty"`
	OwnerIds []int64 `json:"ownerIds,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
}

// NewOrderItemModel is one requested line of a new order. UnitPrice is the
// price the client saw; it must match the live product price exactly.
type NewOrderItemModel struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// CreateOrderModel represents a request to create an order.
type CreateOrderModel struct {
	OwnerID int64               `json:"ownerId"`
	Items   []NewOrderItemModel `json:"items"`
}
