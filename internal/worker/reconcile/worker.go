package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/viper"

	"github.com/shopfabrik/payment-svc/internal/service/models/apperr"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
)

// settlementService is the service layer interface.
type settlementService interface {
	ListStalePayments(ctx context.Context, createdBefore time.Time, limit int) ([]payment.Payment, error)
	Reconcile(ctx context.Context, transactionID string) (*payment.Payment, error)
}

// Worker pull-verifies payments that stayed pending longer than the
// configured cutoff, for providers whose webhooks were lost or never
// existed. Terminal results funnel through the same settlement engine
// as webhooks.
type Worker struct {
	service      settlementService
	pollInterval time.Duration
	staleAfter   time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new reconciliation worker.
func NewWorker(service settlementService) *Worker {
	pollIntervalSeconds := viper.GetInt("reconcile.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 60
	}

	staleAfterSeconds := viper.GetInt("reconcile.stale_after_seconds")
	if staleAfterSeconds == 0 {
		staleAfterSeconds = 300
	}

	batchSize := viper.GetInt("reconcile.batch_size")
	if batchSize == 0 {
		batchSize = 50
	}

	return &Worker{
		service:      service,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		staleAfter:   time.Duration(staleAfterSeconds) * time.Second,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start begins polling for stale pending payments.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Reconcile worker started",
		"poll_interval", w.pollInterval,
		"stale_after", w.staleAfter,
		"batch_size", w.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Reconcile worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Reconcile worker stopped")

			return
		case <-ticker.C:
			w.reconcileStalePayments(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// reconcileStalePayments pull-verifies each stale pending payment.
// Provider errors are retried with bounded fibonacci backoff; anything
// else is left for the next polling round.
func (w *Worker) reconcileStalePayments(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)

	stale, err := w.service.ListStalePayments(ctx, cutoff, w.batchSize)
	if err != nil {
		slog.Error("Failed to list stale pending payments", "error", err)

		return
	}

	if len(stale) == 0 {
		return
	}

	slog.Info("Reconciling stale pending payments", "count", len(stale))

	for _, p := range stale {
		backoff := retry.WithMaxRetries(3, retry.NewFibonacci(time.Second))

		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			_, err := w.service.Reconcile(ctx, p.TransactionID)
			if apperr.KindOf(err) == apperr.KindProvider {
				return retry.RetryableError(err)
			}

			return err
		})
		if err != nil {
			slog.Error("Failed to reconcile payment",
				"transaction_id", p.TransactionID,
				"order_id", p.OrderID,
				"error", err,
			)
		}
	}
}
