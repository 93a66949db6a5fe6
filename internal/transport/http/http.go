package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/shopfabrik/payment-svc/internal/service/models/order"
	"github.com/shopfabrik/payment-svc/internal/service/models/payment"
	"github.com/shopfabrik/payment-svc/internal/service/models/webhookevent"
	createorder "github.com/shopfabrik/payment-svc/internal/transport/http/create_order"
	createpayment "github.com/shopfabrik/payment-svc/internal/transport/http/create_payment"
	getorder "github.com/shopfabrik/payment-svc/internal/transport/http/get_order"
	listorders "github.com/shopfabrik/payment-svc/internal/transport/http/list_orders"
	listpayments "github.com/shopfabrik/payment-svc/internal/transport/http/list_payments"
	paymentwebhook "github.com/shopfabrik/payment-svc/internal/transport/http/payment_webhook"
	reconcilepayment "github.com/shopfabrik/payment-svc/internal/transport/http/reconcile_payment"
	"github.com/shopfabrik/payment-svc/pkg/http/middleware/trace"
	"github.com/shopfabrik/payment-svc/pkg/logger"
)

type orderService interface {
	CreateOrder(ctx context.Context, model order.CreateOrderModel) (*order.Order, error)
	GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
}

type paymentService interface {
	CreatePayment(
		ctx context.Context,
		orderID int64,
		prov payment.Provider,
		metadata map[string]string,
	) (*payment.Payment, error)
	GetPayments(ctx context.Context, orderID int64) ([]payment.Payment, error)
}

type settlementService interface {
	IngestWebhook(
		ctx context.Context,
		prov payment.Provider,
		header http.Header,
		body []byte,
	) (*webhookevent.WebhookEvent, *payment.SettlementEvent, error)
	ProcessWebhookEvent(ctx context.Context, journalID int64, event payment.SettlementEvent)
	Reconcile(ctx context.Context, transactionID string) (*payment.Payment, error)
}

type HTTPTransport struct {
	server     *http.Server
	router     *chi.Mux
	orders     orderService
	payments   paymentService
	settlement settlementService
}

func NewHTTPTransport(
	orders orderService,
	payments paymentService,
	settlement settlementService,
) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:     server,
		router:     router,
		orders:     orders,
		payments:   payments,
		settlement: settlement,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Get("/orders/{orderID}/payments", h.listPayments)
		r.Post("/payments", h.createPayment)
		r.Post("/payments/webhook/{provider}", h.handleWebhook)
		r.Post("/payments/{transactionID}/reconcile", h.reconcilePayment)
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orders)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orders)
}

func (h *HTTPTransport) createPayment(w http.ResponseWriter, r *http.Request) {
	createpayment.CreatePayment(w, r, h.payments)
}

func (h *HTTPTransport) listPayments(w http.ResponseWriter, r *http.Request) {
	listpayments.ListPayments(w, r, h.payments)
}

func (h *HTTPTransport) handleWebhook(w http.ResponseWriter, r *http.Request) {
	paymentwebhook.HandleWebhook(w, r, h.settlement)
}

func (h *HTTPTransport) reconcilePayment(w http.ResponseWriter, r *http.Request) {
	reconcilepayment.ReconcilePayment(w, r, h.settlement)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
