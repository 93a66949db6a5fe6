package paymentsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iorderrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/ipaymentrepo"
	"github.com/shopfabrik/payment-svc/internal/provider"
	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/order"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

type fakeOrderRepo struct {
	orders map[int64]order.Order
}

func (r *fakeOrderRepo) Insert(_ context.Context, o order.Order) (order.Order, error) {
	r.orders[o.ID] = o

	return o, nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.NotFound("order %d not found", id)
	}

	return &o, nil
}

func (r *fakeOrderRepo) UpdateStatusIfPending(_ context.Context, id int64, status order.Status, updatedAt time.Time) (bool, error) {
	o, ok := r.orders[id]
	if !ok || o.Status != order.StatusPending {
		return false, nil
	}
	o.Status = status
	o.UpdatedAt = updatedAt
	r.orders[id] = o

	return true, nil
}

func (r *fakeOrderRepo) Query(context.Context, *order.QueryOrdersModel) ([]order.Order, error) {
	return nil, nil
}

type fakePaymentRepo struct {
	nextID   int64
	payments map[string]payment.Payment
}

func (r *fakePaymentRepo) Insert(_ context.Context, p payment.Payment) (payment.Payment, error) {
	if _, exists := r.payments[p.TransactionID]; exists {
		return payment.Payment{}, apperr.Conflict(
			"payment with transaction id %s already exists", p.TransactionID,
		)
	}
	r.nextID++
	p.ID = r.nextID
	r.payments[p.TransactionID] = p

	return p, nil
}

func (r *fakePaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*payment.Payment, error) {
	p, ok := r.payments[transactionID]
	if !ok {
		return nil, apperr.NotFound("payment with transaction id %s not found", transactionID)
	}

	return &p, nil
}

func (r *fakePaymentRepo) GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*payment.Payment, error) {
	return r.GetByTransactionID(ctx, transactionID)
}

func (r *fakePaymentRepo) ListByOrderID(_ context.Context, orderID int64) ([]payment.Payment, error) {
	var result []payment.Payment
	for _, p := range r.payments {
		if p.OrderID == orderID {
			result = append(result, p)
		}
	}

	return result, nil
}

func (r *fakePaymentRepo) UpdateStatus(
	_ context.Context,
	id int64,
	status payment.Status,
	rawResponse json.RawMessage,
	updatedAt time.Time,
) error {
	for txID, p := range r.payments {
		if p.ID == id {
			p.Status = status
			p.RawResponse = rawResponse
			p.UpdatedAt = updatedAt
			r.payments[txID] = p
		}
	}

	return nil
}

func (r *fakePaymentRepo) ListStalePending(context.Context, time.Time, int) ([]payment.Payment, error) {
	return nil, nil
}

type fakeUOW struct {
	orders   *fakeOrderRepo
	payments *fakePaymentRepo

	begun      bool
	committed  bool
	rolledBack bool
}

func (u *fakeUOW) Begin(context.Context) error {
	u.begun = true

	return nil
}

func (u *fakeUOW) Commit(context.Context) error {
	u.committed = true

	return nil
}

func (u *fakeUOW) Rollback(context.Context) error {
	if !u.committed {
		u.rolledBack = true
	}

	return nil
}

func (u *fakeUOW) OrderRepository() iorderrepo.IOrderRepository {
	return u.orders
}

func (u *fakeUOW) PaymentRepository() ipaymentrepo.IPaymentRepository {
	return u.payments
}

type fakeStrategy struct {
	name        payment.Provider
	intent      *provider.Intent
	intentErr   error
	calls       int
	lastRequest provider.CreateIntentRequest
}

func (s *fakeStrategy) Name() payment.Provider {
	return s.name
}

func (s *fakeStrategy) CreateIntent(_ context.Context, req provider.CreateIntentRequest) (*provider.Intent, error) {
	s.calls++
	s.lastRequest = req
	if s.intentErr != nil {
		return nil, s.intentErr
	}
	intent := *s.intent
	intent.TransactionID = fmt.Sprintf("%s_%d", intent.TransactionID, s.calls)

	return &intent, nil
}

func (s *fakeStrategy) ParseWebhook(http.Header, []byte) (*payment.SettlementEvent, error) {
	return nil, apperr.Validation("webhooks not supported")
}

func (s *fakeStrategy) VerifyTransaction(context.Context, string) (*payment.SettlementEvent, error) {
	return nil, apperr.Validation("verification not supported")
}

type fakeSettlement struct {
	events []payment.SettlementEvent
	result *payment.Payment
	err    error
}

func (s *fakeSettlement) Settle(_ context.Context, event payment.SettlementEvent) (*payment.Payment, error) {
	s.events = append(s.events, event)

	return s.result, s.err
}

type fixture struct {
	service    *PaymentService
	orders     *fakeOrderRepo
	payments   *fakePaymentRepo
	strategy   *fakeStrategy
	settlement *fakeSettlement
}

func newFixture(strategy *fakeStrategy) *fixture {
	orders := &fakeOrderRepo{orders: map[int64]order.Order{
		1: {ID: 1, OwnerID: 42, TotalAmount: decimal.RequireFromString("55.00"), Status: order.StatusPending},
		2: {ID: 2, OwnerID: 42, TotalAmount: decimal.RequireFromString("30.00"), Status: order.StatusPaid},
	}}
	payments := &fakePaymentRepo{payments: map[string]payment.Payment{}}
	settlement := &fakeSettlement{}

	service := MustNewPaymentService(
		WithUnitOfWorkFactory(func() unitOfWork {
			return &fakeUOW{orders: orders, payments: payments}
		}),
		WithProviderRegistry(provider.NewRegistry(strategy)),
		WithSettlementService(settlement),
	)

	return &fixture{
		service:    service,
		orders:     orders,
		payments:   payments,
		strategy:   strategy,
		settlement: settlement,
	}
}

func pendingIntentStrategy() *fakeStrategy {
	return &fakeStrategy{
		name: payment.ProviderCardgate,
		intent: &provider.Intent{
			TransactionID: "tx",
			Status:        payment.StatusPending,
			RawPayload:    json.RawMessage(`{"status":"created"}`),
		},
	}
}

func TestCreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order gets a pending attempt with a fresh transaction id", func(t *testing.T) {
		f := newFixture(pendingIntentStrategy())

		p, err := f.service.CreatePayment(ctx, 1, payment.ProviderCardgate, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if p.Status != payment.StatusPending {
			t.Fatalf("expected pending payment, got %s", p.Status)
		}
		if p.TransactionID == "" {
			t.Fatal("expected a provider transaction id")
		}
		if !p.Amount.Equal(decimal.RequireFromString("55.00")) {
			t.Fatalf("expected amount 55.00, got %s", p.Amount)
		}
		if f.orders.orders[1].Status != order.StatusPending {
			t.Fatalf("order must stay pending until settlement, got %s", f.orders.orders[1].Status)
		}
		if len(f.settlement.events) != 0 {
			t.Fatal("a pending intent must not trigger settlement")
		}
	})

	t.Run("retry after a failed attempt creates a second attempt", func(t *testing.T) {
		f := newFixture(pendingIntentStrategy())

		first, err := f.service.CreatePayment(ctx, 1, payment.ProviderCardgate, nil)
		if err != nil {
			t.Fatalf("unexpected error on first attempt: %v", err)
		}
		failed := f.payments.payments[first.TransactionID]
		failed.Status = payment.StatusFailed
		f.payments.payments[first.TransactionID] = failed

		second, err := f.service.CreatePayment(ctx, 1, payment.ProviderCardgate, nil)
		if err != nil {
			t.Fatalf("unexpected error on retry: %v", err)
		}

		if second.TransactionID == first.TransactionID {
			t.Fatal("retry must carry a fresh transaction id")
		}
		if len(f.payments.payments) != 2 {
			t.Fatalf("expected two payment rows, got %d", len(f.payments.payments))
		}
	})

	t.Run("paid order is rejected with a conflict", func(t *testing.T) {
		f := newFixture(pendingIntentStrategy())

		_, err := f.service.CreatePayment(ctx, 2, payment.ProviderCardgate, nil)
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Fatalf("expected a conflict error, got %v", err)
		}
		if got, want := err.Error(), "Order cannot be paid. Current status: paid"; got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
		if f.strategy.calls != 0 {
			t.Fatal("provider must not be called for a non-pending order")
		}
	})

	t.Run("completed attempt blocks further attempts", func(t *testing.T) {
		f := newFixture(pendingIntentStrategy())

		first, err := f.service.CreatePayment(ctx, 1, payment.ProviderCardgate, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		completed := f.payments.payments[first.TransactionID]
		completed.Status = payment.StatusCompleted
		f.payments.payments[first.TransactionID] = completed

		_, err = f.service.CreatePayment(ctx, 1, payment.ProviderCardgate, nil)
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Fatalf("expected a conflict error, got %v", err)
		}
	})

	t.Run("unknown order surfaces not found", func(t *testing.T) {
		f := newFixture(pendingIntentStrategy())

		_, err := f.service.CreatePayment(ctx, 99, payment.ProviderCardgate, nil)
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Fatalf("expected a not found error, got %v", err)
		}
	})

	t.Run("unsupported provider is rejected before any work", func(t *testing.T) {
		f := newFixture(pendingIntentStrategy())

		_, err := f.service.CreatePayment(ctx, 1, payment.Provider("paypal"), nil)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected a validation error, got %v", err)
		}
		if len(f.payments.payments) != 0 {
			t.Fatal("no payment row may be created for an unsupported provider")
		}
	})

	t.Run("provider failure leaves no payment row", func(t *testing.T) {
		strategy := pendingIntentStrategy()
		strategy.intentErr = apperr.Provider(errors.New("connection refused"), "cardgate is unreachable")
		f := newFixture(strategy)

		_, err := f.service.CreatePayment(ctx, 1, payment.ProviderCardgate, nil)
		if apperr.KindOf(err) != apperr.KindProvider {
			t.Fatalf("expected a provider error, got %v", err)
		}
		if len(f.payments.payments) != 0 {
			t.Fatalf("expected no payment rows, got %d", len(f.payments.payments))
		}
	})

	t.Run("order amount and metadata are forwarded to the provider", func(t *testing.T) {
		f := newFixture(pendingIntentStrategy())

		_, err := f.service.CreatePayment(ctx, 1, payment.ProviderCardgate, map[string]string{"customer": "42"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req := f.strategy.lastRequest
		if req.OrderID != 1 {
			t.Fatalf("expected order id 1, got %d", req.OrderID)
		}
		if !req.Amount.Equal(decimal.RequireFromString("55.00")) {
			t.Fatalf("expected amount 55.00, got %s", req.Amount)
		}
		if req.Metadata["customer"] != "42" {
			t.Fatalf("expected metadata to be forwarded, got %v", req.Metadata)
		}
	})

	t.Run("terminal initial status settles through the engine", func(t *testing.T) {
		strategy := &fakeStrategy{
			name: payment.ProviderWalletio,
			intent: &provider.Intent{
				TransactionID: "ch",
				Status:        payment.StatusCompleted,
				RawPayload:    json.RawMessage(`{"state":"CAPTURED"}`),
			},
		}
		f := newFixture(strategy)
		f.settlement.result = &payment.Payment{
			OrderID: 1,
			Status:  payment.StatusCompleted,
		}

		p, err := f.service.CreatePayment(ctx, 1, payment.ProviderWalletio, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if p.Status != payment.StatusCompleted {
			t.Fatalf("expected the settled payment back, got %s", p.Status)
		}
		if len(f.settlement.events) != 1 {
			t.Fatalf("expected one settlement call, got %d", len(f.settlement.events))
		}
		event := f.settlement.events[0]
		if event.Status != payment.StatusCompleted {
			t.Fatalf("expected a completed settlement event, got %s", event.Status)
		}
		// The row is persisted pending first; settlement owns the terminal
		// transition.
		stored := f.payments.payments[event.TransactionID]
		if stored.Status != payment.StatusPending {
			t.Fatalf("expected the stored row pending before settlement, got %s", stored.Status)
		}
	})
}

func TestGetPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("returns all attempts for the order", func(t *testing.T) {
		f := newFixture(pendingIntentStrategy())

		if _, err := f.service.CreatePayment(ctx, 1, payment.ProviderCardgate, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		attempts, err := f.service.GetPayments(ctx, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(attempts) != 1 {
			t.Fatalf("expected one attempt, got %d", len(attempts))
		}
	})

	t.Run("unknown order surfaces not found", func(t *testing.T) {
		f := newFixture(pendingIntentStrategy())

		_, err := f.service.GetPayments(ctx, 99)
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Fatalf("expected a not found error, got %v", err)
		}
	})
}
