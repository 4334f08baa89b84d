package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	createauditlog "github.com/orderlab/oms/internal/order/transport/http/create_audit_log"
	createorder "github.com/orderlab/oms/internal/order/transport/http/create_order"
	listorders "github.com/orderlab/oms/internal/order/transport/http/list_orders"

	"github.com/orderlab/oms/internal/order/service/models/auditlog"
	"github.com/orderlab/oms/internal/order/service/models/order"
	"github.com/orderlab/oms/internal/order/service/models/orderitem"
	"github.com/orderlab/oms/pkg/http/middleware/trace"
	"github.com/orderlab/oms/pkg/logger"
)

type orderService interface {
	GetOrders(ctx context.Context, model orderitem.QueryOrderItemsModel) ([]order.Order, error)
	BatchInsert(ctx context.Context, orders []order.Order) ([]order.Order, error)
}

type auditService interface {
	BatchInsert(ctx context.Context, logs []auditlog.AuditLogOrder) ([]auditlog.AuditLogOrder, error)
}

type HTTPTransport struct {
	server       *http.Server
	router       *chi.Mux
	orderService orderService
	auditService auditService
}

func NewHTTPTransport(orderService orderService, auditService auditService) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:       server,
		router:       router,
		orderService: orderService,
		auditService: auditService,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Get("/orders", h.getOrders)
		r.Post("/orders", h.batchInsert)
		r.Post("/audit/log-order", h.logOrder)
	})
}

func (h *HTTPTransport) batchInsert(w http.ResponseWriter, r *http.Request) {
	createorder.BatchInsert(w, r, h.orderService)
}

func (h *HTTPTransport) getOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orderService)
}

func (h *HTTPTransport) logOrder(w http.ResponseWriter, r *http.Request) {
	createauditlog.LogOrder(w, r, h.auditService)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

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
