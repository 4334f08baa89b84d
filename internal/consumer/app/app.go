package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orderlab/oms/internal/consumer/dal/oms"
	"github.com/orderlab/oms/internal/consumer/dal/postgres"
	inboxrepo "github.com/orderlab/oms/internal/consumer/dal/repositories/inbox/postgres"
	"github.com/orderlab/oms/internal/consumer/rabbitmq"
	"github.com/orderlab/oms/internal/consumer/service/services/consumersvc"
	"github.com/orderlab/oms/internal/consumer/transport/consumer"
	inboxworker "github.com/orderlab/oms/internal/consumer/worker/inbox"
	"github.com/orderlab/oms/internal/otel"
)

// App represents the consumer application.
type App struct {
	consumerSvc    *consumersvc.ConsumerService
	consumerTransp *consumer.Consumer
	inboxWorker    *inboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel("consumer-svc")
	rabbitMqClient := rabbitmq.MustNewClient()
	postgresClient := postgres.MustNewClient()

	omsClient := oms.MustNewClient()
	inboxRepository := inboxrepo.NewInboxRepository(postgresClient)

	consumerSvc := consumersvc.MustNewConsumerService(
		consumersvc.WithAuditRepository(omsClient),
	)

	consumerTransp := consumer.NewConsumer(rabbitMqClient, consumerSvc, inboxRepository)

	inboxWorker := inboxworker.NewWorker(inboxRepository, consumerSvc)

	return &App{
		consumerSvc:    consumerSvc,
		consumerTransp: consumerTransp,
		inboxWorker:    inboxWorker,
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting inbox worker")
		a.inboxWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops components sequentially: inbox worker,
// consumer, RabbitMQ, PostgreSQL, and the tracer provider.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.inboxWorker.Stop()
	slog.Info("Inbox worker stopped gracefully")

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if err := a.postgresClient.Close(); err != nil {
		slog.Error("Database connection close error", "error", err)
	}

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
