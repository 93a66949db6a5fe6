package ordersvc

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iorderitemrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iorderrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iproductrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/postgres"
	"github.com/shopfabrik/payment-svc/internal/dal/uow"
	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/money"
	"github.com/shopfabrik/payment-svc/internal/service/models/order"
	"github.com/shopfabrik/payment-svc/internal/service/models/orderitem"
)

// OrderService validates order requests against live product data and
// persists the resulting aggregate. Stock is only checked here, never
// reserved; the settlement engine performs the actual decrement.
type OrderService struct {
	newUOW func() unitOfWork
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	ProductRepository() iproductrepo.IProductRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		panic("ordersvc: no unit of work source configured")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory sets a custom unit of work source, used by tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// CreateOrder validates the request and persists the order with its items
// in one transaction. Every item's unit price must match the product's
// live price exactly, and aggregated quantities must fit current stock.
func (s *OrderService) CreateOrder(
	ctx context.Context,
	model order.CreateOrderModel,
) (*order.Order, error) {
	if len(model.Items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}

	clientPrices := make([]decimal.Decimal, len(model.Items))
	for i, item := range model.Items {
		if item.Quantity <= 0 {
			return nil, apperr.Validation(
				"quantity for product %d must be positive", item.ProductID,
			)
		}
		price, err := money.Parse(item.UnitPrice)
		if err != nil {
			return nil, apperr.Validation(
				"unit price %q for product %d is not a valid amount", item.UnitPrice, item.ProductID,
			)
		}
		clientPrices[i] = price
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer work.Rollback(ctx)

	products, err := s.loadProducts(ctx, work, model)
	if err != nil {
		return nil, err
	}

	// An order may reference the same product twice; stock is checked
	// against the summed quantity per product.
	requested := make(map[int64]int)
	for _, item := range model.Items {
		requested[item.ProductID] += item.Quantity
	}
	for productID, quantity := range requested {
		p := products[productID]
		if p.Stock < quantity {
			return nil, apperr.Validation(
				"insufficient stock for product %d: available %d, requested %d",
				productID, p.Stock, quantity,
			)
		}
	}

	for i, item := range model.Items {
		if !clientPrices[i].Equal(products[item.ProductID].Price) {
			return nil, apperr.Validation(
				"price for product %d has changed: expected %s, got %s",
				item.ProductID,
				money.String(products[item.ProductID].Price),
				money.String(clientPrices[i]),
			)
		}
	}

	now := time.Now()
	items := make([]orderitem.OrderItem, len(model.Items))
	subtotals := make([]decimal.Decimal, len(model.Items))
	for i, item := range model.Items {
		subtotal := money.Mul(clientPrices[i], item.Quantity)
		items[i] = orderitem.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: clientPrices[i],
			Subtotal:  subtotal,
			CreatedAt: now,
			UpdatedAt: now,
		}
		subtotals[i] = subtotal
	}

	inserted, err := work.OrderRepository().Insert(ctx, order.Order{
		OwnerID:     model.OwnerID,
		TotalAmount: money.Sum(subtotals...),
		Status:      order.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].OrderID = inserted.ID
	}
	insertedItems, err := work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		return nil, err
	}
	inserted.OrderItems = insertedItems

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return &inserted, nil
}

// GetOrders retrieves orders with their items based on filter.
func (s *OrderService) GetOrders(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	orderIDs := make([]int64, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}
	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		for _, item := range items {
			if item.OrderID == orders[i].ID {
				orders[i].OrderItems = append(orders[i].OrderItems, item)
			}
		}
	}

	return orders, nil
}

// GetOrder retrieves a single order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	o.OrderItems = items

	return o, nil
}

func (s *OrderService) loadProducts(
	ctx context.Context,
	work unitOfWork,
	model order.CreateOrderModel,
) (map[int64]productInfo, error) {
	distinct := make([]int64, 0, len(model.Items))
	seen := make(map[int64]bool)
	for _, item := range model.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			distinct = append(distinct, item.ProductID)
		}
	}

	loaded, err := work.ProductRepository().ListByIDs(ctx, distinct)
	if err != nil {
		return nil, err
	}

	products := make(map[int64]productInfo, len(loaded))
	for _, p := range loaded {
		products[p.ID] = productInfo{Price: p.Price, Stock: p.Stock, IsActive: p.IsActive}
	}

	for _, id := range distinct {
		p, ok := products[id]
		if !ok {
			return nil, apperr.NotFound("product %d not found", id)
		}
		if !p.IsActive {
			return nil, apperr.Validation("product %d is not available", id)
		}
	}

	return products, nil
}

type productInfo struct {
	Price    decimal.Decimal
	Stock    int
	IsActive bool
}
