package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/shopfabrik/payment-svc/internal/dal/postgres"
	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/webhookevent"
)

// PostgresWebhookEventRepository implements the webhook event journal for
// PostgreSQL.
type PostgresWebhookEventRepository struct {
	conn postgres.Querier
}

func NewPostgresWebhookEventRepository(conn postgres.Querier) *PostgresWebhookEventRepository {
	return &PostgresWebhookEventRepository{
		conn: conn,
	}
}

// Insert journals an authenticated inbound webhook.
func (r *PostgresWebhookEventRepository) Insert(
	ctx context.Context,
	ev webhookevent.WebhookEvent,
) (webhookevent.WebhookEvent, error) {
	query, args, err := sq.Insert("webhook_events").
		Columns("event_id", "provider", "transaction_id", "payload", "process_error", "created_at").
		Values(ev.EventID, ev.Provider, ev.TransactionID, []byte(ev.Payload), ev.ProcessError, ev.CreatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return webhookevent.WebhookEvent{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&ev.ID); err != nil {
		return webhookevent.WebhookEvent{}, fmt.Errorf("failed to insert webhook event: %w", err)
	}

	return ev, nil
}

// MarkProcessed records the settlement outcome for a journaled event.
func (r *PostgresWebhookEventRepository) MarkProcessed(
	ctx context.Context,
	id int64,
	processError string,
	processedAt time.Time,
) error {
	query, args, err := sq.Update("webhook_events").
		Set("process_error", processError).
		Set("processed_at", processedAt).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update webhook event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("webhook event %d not found", id)
	}

	return nil
}
