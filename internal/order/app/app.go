package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orderlab/oms/internal/order/dal/postgres"
	"github.com/orderlab/oms/internal/order/dal/rabbitmq"
	"github.com/orderlab/oms/internal/order/dal/redis"
	outboxrepo "github.com/orderlab/oms/internal/order/dal/repositories/outbox/postgres"
	redisrepo "github.com/orderlab/oms/internal/order/dal/repositories/ordercache/redis"
	rabbitmqrepo "github.com/orderlab/oms/internal/order/dal/repositories/publisher/rabbitmq"
	"github.com/orderlab/oms/internal/order/service/services/auditsvc"
	"github.com/orderlab/oms/internal/order/service/services/ordersvc"
	httptransport "github.com/orderlab/oms/internal/order/transport/http"
	"github.com/orderlab/oms/internal/order/worker/outbox"
	"github.com/orderlab/oms/internal/otel"
)

// App represents the order service application.
type App struct {
	orderSvc       *ordersvc.OrderService
	auditSvc       *auditsvc.AuditService
	transport      *httptransport.HTTPTransport
	outboxWorker   *outbox.Worker
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	redisClient    *redis.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel("order-svc")

	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()
	redisClient := redis.MustNewClient()

	publisher := rabbitmqrepo.MustNewOrderCreatedPublisher(rabbitClient)
	outboxRepo := outboxrepo.NewOutboxRepository(postgresClient.Pool())
	orderCache := redisrepo.NewOrderCache(redisClient)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithPublisher(publisher, publisher.Queue()),
		ordersvc.WithOutboxRepository(outboxRepo),
		ordersvc.WithOrderCache(orderCache),
	)

	auditSvc := auditsvc.MustNewAuditService(
		auditsvc.WithPostgresClient(postgresClient),
	)

	transport := httptransport.NewHTTPTransport(orderSvc, auditSvc)
	transport.RegisterRoutes()

	outboxWorker := outbox.NewWorker(outboxRepo, rabbitClient.Channel())

	return &App{
		orderSvc:       orderSvc,
		auditSvc:       auditSvc,
		transport:      transport,
		outboxWorker:   outboxWorker,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		redisClient:    redisClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go a.outboxWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	cancelWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	}

	if err := a.redisClient.Close(); err != nil {
		slog.Error("Redis connection close error", "error", err)
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
