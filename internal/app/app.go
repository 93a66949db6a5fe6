package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopfabrik/payment-svc/internal/dal/postgres"
	"github.com/shopfabrik/payment-svc/internal/dal/rabbitmq"
	outboxrepo "github.com/shopfabrik/payment-svc/internal/dal/repositories/outbox/postgres"
	"github.com/shopfabrik/payment-svc/internal/otel"
	"github.com/shopfabrik/payment-svc/internal/provider"
	"github.com/shopfabrik/payment-svc/internal/provider/cardgate"
	"github.com/shopfabrik/payment-svc/internal/provider/walletio"
	"github.com/shopfabrik/payment-svc/internal/service/services/ordersvc"
	"github.com/shopfabrik/payment-svc/internal/service/services/paymentsvc"
	"github.com/shopfabrik/payment-svc/internal/service/services/settlementsvc"
	httptransport "github.com/shopfabrik/payment-svc/internal/transport/http"
	outboxworker "github.com/shopfabrik/payment-svc/internal/worker/outbox"
	reconcileworker "github.com/shopfabrik/payment-svc/internal/worker/reconcile"
)

// App represents the application. All services and workers are built
// here explicitly and passed by reference; there is no ambient registry.
type App struct {
	orderSvc        *ordersvc.OrderService
	paymentSvc      *paymentsvc.PaymentService
	settlementSvc   *settlementsvc.SettlementService
	transport       *httptransport.HTTPTransport
	outboxWorker    *outboxworker.Worker
	reconcileWorker *reconcileworker.Worker
	postgresClient  *postgres.Client
	rabbitClient    *rabbitmq.Client
	otelController  *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	registry := provider.NewRegistry(
		cardgate.NewStrategy(),
		walletio.NewStrategy(),
	)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
	)

	settlementSvc := settlementsvc.MustNewSettlementService(
		settlementsvc.WithPostgresClient(postgresClient),
		settlementsvc.WithProviderRegistry(registry),
	)

	paymentSvc := paymentsvc.MustNewPaymentService(
		paymentsvc.WithPostgresClient(postgresClient),
		paymentsvc.WithProviderRegistry(registry),
		paymentsvc.WithSettlementService(settlementSvc),
	)

	transport := httptransport.NewHTTPTransport(orderSvc, paymentSvc, settlementSvc)
	transport.RegisterRoutes()

	outboxWorker := outboxworker.NewWorker(
		outboxrepo.NewPostgresOutboxRepository(postgresClient.Pool()),
		rabbitClient,
	)
	reconcileWorker := reconcileworker.NewWorker(settlementSvc)

	return &App{
		orderSvc:        orderSvc,
		paymentSvc:      paymentSvc,
		settlementSvc:   settlementSvc,
		transport:       transport,
		outboxWorker:    outboxWorker,
		reconcileWorker: reconcileWorker,
		postgresClient:  postgresClient,
		rabbitClient:    rabbitClient,
		otelController:  otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	go a.outboxWorker.Start(workerCtx)
	go a.reconcileWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	cancelWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
