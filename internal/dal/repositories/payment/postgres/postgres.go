package postgresrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/shopfabrik/payment-svc/internal/dal/postgres"
	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

// uniqueViolation is the Postgres error code raised by the transaction_id
// unique constraint, the last line of defense against duplicate-row races.
const uniqueViolation = "23505"

var paymentColumns = []string{
	"id",
	"order_id",
	"provider",
	"transaction_id",
	"status",
	"amount",
	"raw_response",
	"created_at",
	"updated_at",
}

// PaymentDal represents the payment data access layer model.
type PaymentDal struct {
	Id            int64
	OrderId       int64
	Provider      string
	TransactionId string
	Status        string
	Amount        decimal.Decimal
	RawResponse   []byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ToModel converts PaymentDal to the service layer Payment model.
func (p *PaymentDal) ToModel() (*payment.Payment, error) {
	provider, err := payment.ParseProvider(p.Provider)
	if err != nil {
		return nil, err
	}
	status, err := payment.ParseStatus(p.Status)
	if err != nil {
		return nil, err
	}

	return &payment.Payment{
		ID:            p.Id,
		OrderID:       p.OrderId,
		Provider:      provider,
		TransactionID: p.TransactionId,
		Status:        status,
		Amount:        p.Amount,
		RawResponse:   p.RawResponse,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}, nil
}

type PostgresPaymentRepository struct {
	conn postgres.Querier
}

func NewPostgresPaymentRepository(conn postgres.Querier) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		conn: conn,
	}
}

// Insert persists a new payment attempt.
func (r *PostgresPaymentRepository) Insert(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	query, args, err := sq.Insert("payments").
		Columns("order_id", "provider", "transaction_id", "status", "amount", "raw_response", "created_at", "updated_at").
		Values(p.OrderID, p.Provider, p.TransactionID, p.Status, p.Amount, []byte(p.RawResponse), p.CreatedAt, p.UpdatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return payment.Payment{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	err = r.conn.QueryRow(ctx, query, args...).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return payment.Payment{}, apperr.Conflict(
				"payment with transaction id %s already exists", p.TransactionID,
			)
		}

		return payment.Payment{}, fmt.Errorf("failed to insert payment: %w", err)
	}

	return p, nil
}

// GetByTransactionID returns the payment or a NotFound error.
func (r *PostgresPaymentRepository) GetByTransactionID(
	ctx context.Context,
	transactionID string,
) (*payment.Payment, error) {
	return r.getByTransactionID(ctx, transactionID, false)
}

// GetByTransactionIDForUpdate loads the payment under a row lock.
func (r *PostgresPaymentRepository) GetByTransactionIDForUpdate(
	ctx context.Context,
	transactionID string,
) (*payment.Payment, error) {
	return r.getByTransactionID(ctx, transactionID, true)
}

func (r *PostgresPaymentRepository) getByTransactionID(
	ctx context.Context,
	transactionID string,
	forUpdate bool,
) (*payment.Payment, error) {
	builder := sq.Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"transaction_id": transactionID}).
		PlaceholderFormat(sq.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	dal, err := r.scanOne(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("payment with transaction id %s not found", transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return dal.ToModel()
}

// ListByOrderID returns all payment attempts for an order.
func (r *PostgresPaymentRepository) ListByOrderID(
	ctx context.Context,
	orderID int64,
) ([]payment.Payment, error) {
	query, args, err := sq.Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.queryMany(ctx, query, args)
}

// UpdateStatus sets the payment status and stores the raw provider payload.
func (r *PostgresPaymentRepository) UpdateStatus(
	ctx context.Context,
	id int64,
	status payment.Status,
	rawResponse json.RawMessage,
	updatedAt time.Time,
) error {
	query, args, err := sq.Update("payments").
		Set("status", status).
		Set("raw_response", []byte(rawResponse)).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("payment %d not found", id)
	}

	return nil
}

// ListStalePending returns pending payments created before the cutoff.
func (r *PostgresPaymentRepository) ListStalePending(
	ctx context.Context,
	createdBefore time.Time,
	limit int,
) ([]payment.Payment, error) {
	query, args, err := sq.Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"status": payment.StatusPending}).
		Where(sq.Lt{"created_at": createdBefore}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.queryMany(ctx, query, args)
}

func (r *PostgresPaymentRepository) scanOne(row pgx.Row) (*PaymentDal, error) {
	var dal PaymentDal
	err := row.Scan(
		&dal.Id,
		&dal.OrderId,
		&dal.Provider,
		&dal.TransactionId,
		&dal.Status,
		&dal.Amount,
		&dal.RawResponse,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &dal, nil
}

func (r *PostgresPaymentRepository) queryMany(
	ctx context.Context,
	query string,
	args []interface{},
) ([]payment.Payment, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var result []payment.Payment
	for rows.Next() {
		dal, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert payment dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
