package uow

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iorderitemrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iorderrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/ioutboxrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/ipaymentrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/interfaces/iproductrepo"
	"github.com/shopfabrik/payment-svc/internal/dal/postgres"
	orderrepo "github.com/shopfabrik/payment-svc/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/shopfabrik/payment-svc/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/shopfabrik/payment-svc/internal/dal/repositories/outbox/postgres"
	paymentrepo "github.com/shopfabrik/payment-svc/internal/dal/repositories/payment/postgres"
	productrepo "github.com/shopfabrik/payment-svc/internal/dal/repositories/product/postgres"
)

// unitOfWork binds the repositories to one pgx transaction. Before Begin
// the repositories run against the pool directly.
type unitOfWork struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	paymentRepo   ipaymentrepo.IPaymentRepository
	productRepo   iproductrepo.IProductRepository
	outboxRepo    ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	u := &unitOfWork{pool: client.Pool()}
	u.bind(client.Pool())

	return u
}

func (u *unitOfWork) bind(conn postgres.Querier) {
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(conn)
	u.paymentRepo = paymentrepo.NewPostgresPaymentRepository(conn)
	u.productRepo = productrepo.NewPostgresProductRepository(conn)
	u.outboxRepo = outboxrepo.NewPostgresOutboxRepository(conn)
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Rollback(ctx)
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) PaymentRepository() ipaymentrepo.IPaymentRepository {
	return u.paymentRepo
}

func (u *unitOfWork) ProductRepository() iproductrepo.IProductRepository {
	return u.productRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}
