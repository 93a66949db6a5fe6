package settlementsvc

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iorderitemrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iorderrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/ioutboxrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/ipaymentrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iproductrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iwebhookeventrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/postgres"
	webhookeventrepo "github.com/shopfabrik/payment-svc/internal/dal/repositories/webhookevent/postgres"
	"github.com/shopfabrik/payment-svc/internal/dal/uow"
	"github.com/shopfabrik/payment-svc/internal/provider"
	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/order"
	"github.com/shopfabrik/payment-svc/internal/service/models/outbox"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
	"github.com/shopfabrik/payment-svc/internal/service/models/webhookevent"

	"github.com/google/uuid"
)

// SettlementService is the single place where payment status, order
// status and product stock mutate together. Both the webhook path and
// the reconcile path funnel into Settle.
type SettlementService struct {
	newUOW           func() unitOfWork
	registry         *provider.Registry
	webhookEventRepo iwebhookeventrepo.IWebhookEventRepository
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	PaymentRepository() ipaymentrepo.IPaymentRepository
	ProductRepository() iproductrepo.IProductRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the SettlementService.
type option func(*SettlementService)

// MustNewSettlementService creates a new SettlementService.
func MustNewSettlementService(opts ...option) *SettlementService {
	s := &SettlementService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		panic("settlementsvc: no unit of work source configured")
	}
	if s.registry == nil {
		panic("settlementsvc: no provider registry configured")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the SettlementService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *SettlementService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
		s.webhookEventRepo = webhookeventrepo.NewPostgresWebhookEventRepository(pgClient.Pool())
	}
}

// WithProviderRegistry sets the provider registry.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProviderRegistry(registry *provider.Registry) option {
	return func(s *SettlementService) {
		s.registry = registry
	}
}

// WithUnitOfWorkFactory sets a custom unit of work source, used by tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *SettlementService) {
		s.newUOW = factory
	}
}

// WithWebhookEventRepository sets the webhook event journal repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithWebhookEventRepository(repo iwebhookeventrepo.IWebhookEventRepository) option {
	return func(s *SettlementService) {
		s.webhookEventRepo = repo
	}
}

// Settle applies a terminal provider outcome to the payment, its order
// and the affected stock as one atomic unit of work. The payment row is
// locked for the duration, so concurrent settlement calls for the same
// transaction id are serialized and duplicates no-op on the guard.
func (s *SettlementService) Settle(
	ctx context.Context,
	event payment.SettlementEvent,
) (*payment.Payment, error) {
	if !event.Status.IsTerminal() {
		return nil, apperr.Validation(
			"settlement status must be terminal, got %s", event.Status,
		)
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer work.Rollback(ctx)

	p, err := work.PaymentRepository().GetByTransactionIDForUpdate(ctx, event.TransactionID)
	if err != nil {
		return nil, err
	}

	// Idempotency guard: a terminal payment attempt never changes again.
	// Duplicate webhooks and webhook-vs-reconcile races both land here.
	if p.Status.IsTerminal() {
		if p.Status != event.Status {
			slog.WarnContext(ctx, "settlement event for already terminal payment ignored",
				"transaction_id", p.TransactionID,
				"current_status", p.Status,
				"event_status", event.Status,
			)
		}

		return p, nil
	}

	now := time.Now()
	orderStatus := order.StatusPending

	switch event.Status {
	case payment.StatusCompleted:
		orderStatus, err = s.settleCompleted(ctx, work, p, event, now)
		if err != nil {
			return nil, err
		}

	case payment.StatusFailed:
		// The order stays pending so the customer can retry payment.
		if err := work.PaymentRepository().UpdateStatus(ctx, p.ID, payment.StatusFailed, event.RawPayload, now); err != nil {
			return nil, err
		}

	case payment.StatusCanceled:
		if err := work.PaymentRepository().UpdateStatus(ctx, p.ID, payment.StatusCanceled, event.RawPayload, now); err != nil {
			return nil, err
		}
		canceled, err := work.OrderRepository().UpdateStatusIfPending(ctx, p.OrderID, order.StatusCanceled, now)
		if err != nil {
			return nil, err
		}
		orderStatus = order.StatusCanceled
		if !canceled {
			// Another attempt already moved the order to a terminal
			// status; only this payment attempt turns canceled.
			ord, err := work.OrderRepository().GetByID(ctx, p.OrderID)
			if err != nil {
				return nil, err
			}
			orderStatus = ord.Status
			slog.WarnContext(ctx, "canceled settlement left a non-pending order untouched",
				"transaction_id", p.TransactionID,
				"order_id", p.OrderID,
				"order_status", ord.Status,
			)
		}
	}

	p.Status = event.Status
	p.RawResponse = event.RawPayload
	p.UpdatedAt = now

	msg, err := outbox.NewSettledMessage(*p, orderStatus, now)
	if err != nil {
		return nil, err
	}
	if err := work.OutboxRepository().Insert(ctx, msg); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "payment settled",
		"transaction_id", p.TransactionID,
		"order_id", p.OrderID,
		"status", p.Status,
	)

	return p, nil
}

// settleCompleted marks the payment completed, the order paid, and
// decrements stock per item, returning the resulting order status. A
// stock shortfall at this point means some other writer broke the
// order-time validation; the whole unit of work aborts rather than
// partially decrement. When the order already reached a terminal status
// through another attempt, the payment still turns completed (the
// provider captured the funds) but order and stock stay untouched.
func (s *SettlementService) settleCompleted(
	ctx context.Context,
	work unitOfWork,
	p *payment.Payment,
	event payment.SettlementEvent,
	now time.Time,
) (order.Status, error) {
	if err := work.PaymentRepository().UpdateStatus(ctx, p.ID, payment.StatusCompleted, event.RawPayload, now); err != nil {
		return "", err
	}

	paid, err := work.OrderRepository().UpdateStatusIfPending(ctx, p.OrderID, order.StatusPaid, now)
	if err != nil {
		return "", err
	}
	if !paid {
		ord, err := work.OrderRepository().GetByID(ctx, p.OrderID)
		if err != nil {
			return "", err
		}
		slog.ErrorContext(ctx, "completed payment for a non-pending order, manual review required",
			"transaction_id", p.TransactionID,
			"order_id", p.OrderID,
			"order_status", ord.Status,
		)

		return ord.Status, nil
	}

	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, []int64{p.OrderID})
	if err != nil {
		return "", err
	}

	for _, item := range items {
		ok, err := work.ProductRepository().DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return "", err
		}
		if !ok {
			slog.ErrorContext(ctx, "stock inconsistency during settlement, rolling back",
				"transaction_id", p.TransactionID,
				"order_id", p.OrderID,
				"product_id", item.ProductID,
				"quantity", item.Quantity,
			)

			return "", apperr.Internal(nil,
				"insufficient stock for product %d while settling transaction %s",
				item.ProductID, p.TransactionID,
			)
		}
	}

	return order.StatusPaid, nil
}

// IngestWebhook authenticates an inbound webhook through the provider
// strategy and journals it. The caller acknowledges the provider once
// this returns, before settlement runs.
func (s *SettlementService) IngestWebhook(
	ctx context.Context,
	prov payment.Provider,
	header http.Header,
	body []byte,
) (*webhookevent.WebhookEvent, *payment.SettlementEvent, error) {
	strategy, err := s.registry.Get(prov)
	if err != nil {
		return nil, nil, err
	}

	event, err := strategy.ParseWebhook(header, body)
	if err != nil {
		return nil, nil, err
	}

	journaled, err := s.webhookEventRepo.Insert(ctx, webhookevent.WebhookEvent{
		EventID:       uuid.NewString(),
		Provider:      prov,
		TransactionID: event.TransactionID,
		Payload:       body,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		return nil, nil, err
	}

	return &journaled, event, nil
}

// ProcessWebhookEvent settles a journaled webhook event and records the
// outcome on the journal row. The webhook was already acknowledged, so a
// settlement failure is an operator-visible condition, not a provider
// retry.
func (s *SettlementService) ProcessWebhookEvent(
	ctx context.Context,
	journalID int64,
	event payment.SettlementEvent,
) {
	processError := ""
	if _, err := s.Settle(ctx, event); err != nil {
		processError = err.Error()
		slog.ErrorContext(ctx, "webhook settlement failed after acknowledgment",
			"webhook_event_id", journalID,
			"transaction_id", event.TransactionID,
			"error", err,
		)
	}

	if err := s.webhookEventRepo.MarkProcessed(ctx, journalID, processError, time.Now()); err != nil {
		slog.ErrorContext(ctx, "failed to mark webhook event processed",
			"webhook_event_id", journalID,
			"error", err,
		)
	}
}

// ListStalePayments returns pending payments older than the cutoff, for
// the reconciliation poller.
func (s *SettlementService) ListStalePayments(
	ctx context.Context,
	createdBefore time.Time,
	limit int,
) ([]payment.Payment, error) {
	work := s.newUOW()

	return work.PaymentRepository().ListStalePending(ctx, createdBefore, limit)
}

// Reconcile pulls the provider's view of a pending transaction and, if
// terminal, funnels it through the same settlement path as webhooks.
func (s *SettlementService) Reconcile(
	ctx context.Context,
	transactionID string,
) (*payment.Payment, error) {
	work := s.newUOW()

	p, err := work.PaymentRepository().GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return p, nil
	}

	strategy, err := s.registry.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	event, err := strategy.VerifyTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !event.Status.IsTerminal() {
		return p, nil
	}

	return s.Settle(ctx, *event)
}
