package paymentsvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iorderrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/ipaymentrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/postgres"
	"github.com/shopfabrik/payment-svc/internal/dal/uow"
	"github.com/shopfabrik/payment-svc/internal/provider"
	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/order"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

// PaymentService creates payment attempts against a provider, enforcing
// one completed payment per order. Provider calls run before any
// transaction opens; a provider failure leaves no payment row behind.
type PaymentService struct {
	newUOW     func() unitOfWork
	registry   *provider.Registry
	settlement settlementService
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	PaymentRepository() ipaymentrepo.IPaymentRepository
}

type settlementService interface {
	Settle(ctx context.Context, event payment.SettlementEvent) (*payment.Payment, error)
}

// option is a function that configures the PaymentService.
type option func(*PaymentService)

// MustNewPaymentService creates a new PaymentService.
func MustNewPaymentService(opts ...option) *PaymentService {
	s := &PaymentService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		panic("paymentsvc: no unit of work source configured")
	}
	if s.registry == nil {
		panic("paymentsvc: no provider registry configured")
	}
	if s.settlement == nil {
		panic("paymentsvc: no settlement service configured")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the PaymentService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *PaymentService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithProviderRegistry sets the provider registry.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProviderRegistry(registry *provider.Registry) option {
	return func(s *PaymentService) {
		s.registry = registry
	}
}

// WithSettlementService sets the settlement engine used for providers
// that settle synchronously.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSettlementService(settlement settlementService) option {
	return func(s *PaymentService) {
		s.settlement = settlement
	}
}

// WithUnitOfWorkFactory sets a custom unit of work source, used by tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *PaymentService) {
		s.newUOW = factory
	}
}

// CreatePayment creates a payment attempt for a pending order.
func (s *PaymentService) CreatePayment(
	ctx context.Context,
	orderID int64,
	prov payment.Provider,
	metadata map[string]string,
) (*payment.Payment, error) {
	work := s.newUOW()

	ord, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.Status != order.StatusPending {
		return nil, apperr.Conflict("Order cannot be paid. Current status: %s", ord.Status)
	}

	// Primary defense against double payment; the unique transaction id
	// constraint is the last line against duplicate-row races.
	attempts, err := work.PaymentRepository().ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, attempt := range attempts {
		if attempt.Status == payment.StatusCompleted {
			return nil, apperr.Conflict("order %d already has a completed payment", orderID)
		}
	}

	strategy, err := s.registry.Get(prov)
	if err != nil {
		return nil, err
	}

	// Network call first; the transaction opens only after the provider
	// answered, so no database lock is held across the wire.
	intent, err := strategy.CreateIntent(ctx, provider.CreateIntentRequest{
		OrderID:  orderID,
		Amount:   ord.TotalAmount,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}

	// Terminal initial statuses are persisted pending and settled right
	// after, so stock and order status move through the one settlement
	// path exactly once.
	now := time.Now()
	p := payment.Payment{
		OrderID:       orderID,
		Provider:      prov,
		TransactionID: intent.TransactionID,
		Status:        payment.StatusPending,
		Amount:        ord.TotalAmount,
		RawResponse:   intent.RawPayload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer work.Rollback(ctx)

	p, err = work.PaymentRepository().Insert(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "payment attempt created",
		"order_id", orderID,
		"provider", prov,
		"transaction_id", p.TransactionID,
		"initial_status", intent.Status,
	)

	if intent.Status.IsTerminal() {
		return s.settlement.Settle(ctx, payment.SettlementEvent{
			TransactionID: p.TransactionID,
			Status:        intent.Status,
			RawPayload:    intent.RawPayload,
		})
	}

	return &p, nil
}

// GetPayments returns all payment attempts for an order.
func (s *PaymentService) GetPayments(ctx context.Context, orderID int64) ([]payment.Payment, error) {
	work := s.newUOW()

	if _, err := work.OrderRepository().GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	return work.PaymentRepository().ListByOrderID(ctx, orderID)
}
