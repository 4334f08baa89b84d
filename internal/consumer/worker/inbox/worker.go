package inbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/orderlab/oms/internal/consumer/dal/interfaces/iinboxrepo"
	"github.com/orderlab/oms/internal/consumer/service/models/order"
)

// service represents the service layer interface.
type service interface {
	ProcessOrder(ctx context.Context, ord order.Order) error
}

// Worker retries messages parked in the inbox table with exponential
// backoff. Rows whose retries are exhausted are left in place for
// operators.
type Worker struct {
	inboxRepo    iinboxrepo.IInboxRepository
	service      service
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new inbox worker.
func NewWorker(
	inboxRepo iinboxrepo.IInboxRepository,
	service service,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.inbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.inbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	return &Worker{
		inboxRepo:    inboxRepo,
		service:      service,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing messages from the inbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Inbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Inbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Inbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// processMessages retrieves and processes pending messages from the inbox.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.inboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from inbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing inbox messages", "count", len(messages))

	for _, msg := range messages {
		var ord order.Order
		if err := json.Unmarshal(msg.Payload, &ord); err != nil {
			slog.Error("Failed to unmarshal order from inbox", "error", err, "inbox_id", msg.ID)
			w.scheduleRetry(ctx, msg.ID, msg.RetryCount, err)

			continue
		}

		if err := w.service.ProcessOrder(ctx, ord); err != nil {
			slog.Warn("Failed to process message from inbox, will retry",
				"inbox_id", msg.ID,
				"order_id", ord.ID,
				"error", err,
			)
			w.scheduleRetry(ctx, msg.ID, msg.RetryCount, err)

			continue
		}

		if err := w.inboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.Error("Failed to delete message from inbox after successful processing",
				"inbox_id", msg.ID,
				"error", err,
			)
		} else {
			slog.Info("Message successfully processed and removed from inbox",
				"inbox_id", msg.ID,
				"message_id", msg.MessageID,
				"order_id", ord.ID,
			)
		}
	}
}

// scheduleRetry bumps the retry count and pushes the next attempt out
// with exponential backoff. Once retry_count reaches max_retries the
// row stops matching the pending query and stays parked.
func (w *Worker) scheduleRetry(ctx context.Context, id int64, retryCount int, cause error) {
	newRetryCount := retryCount + 1
	backoffSeconds := math.Pow(2, float64(newRetryCount)) * 30 // 60s, 120s, 240s, ...
	nextRetryAt := time.Now().Add(time.Duration(backoffSeconds) * time.Second)

	if err := w.inboxRepo.UpdateRetry(ctx, id, newRetryCount, cause.Error(), nextRetryAt); err != nil {
		slog.Error("Failed to update retry information", "inbox_id", id, "error", err)
	}
}
