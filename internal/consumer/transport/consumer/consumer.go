package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/orderlab/oms/internal/consumer/dal/interfaces/iinboxrepo"
	"github.com/orderlab/oms/internal/consumer/rabbitmq"
	"github.com/orderlab/oms/internal/consumer/service/models/inbox"
	"github.com/orderlab/oms/internal/consumer/service/models/order"
)

// service represents the service layer interface.
type service interface {
	ProcessOrder(ctx context.Context, ord order.Order) error
}

// Consumer reads order-created messages and drives them through the
// audit pipeline. Every delivery is settled exactly once:
//
//   - processed successfully: Ack
//   - malformed payload: parked in the inbox with retries exhausted, Ack
//   - processing failed, first delivery: Nack with requeue
//   - processing failed, redelivered: parked in the inbox for the
//     worker to retry with backoff, Ack
//
// A message is therefore never dropped silently and never requeued
// endlessly.
type Consumer struct {
	client    *rabbitmq.Client
	service   service
	inboxRepo iinboxrepo.IInboxRepository
	queue     amqp.Queue
	stop      chan struct{}
	done      chan struct{}
}

// NewConsumer creates a new Consumer.
func NewConsumer(
	client *rabbitmq.Client,
	service service,
	inboxRepo iinboxrepo.IInboxRepository,
) *Consumer {
	queueName := viper.GetString("rabbitmq.queue")
	if queueName == "" {
		queueName = "oms.order.created"
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	return &Consumer{
		client:    client,
		service:   service,
		inboxRepo: inboxRepo,
		queue:     queue,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "consumer-svc"
	}

	prefetch := viper.GetInt("rabbitmq.prefetch_count")
	if prefetch == 0 {
		prefetch = 1
	}
	if err := c.client.Qos(prefetch); err != nil {
		return err
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:     c.queue.Name,
		Consumer:  consumerTag,
		Exclusive: viper.GetBool("rabbitmq.exclusive"),
		NoLocal:   viper.GetBool("rabbitmq.no_local"),
		NoWait:    viper.GetBool("rabbitmq.no_wait"),
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started",
		"queue", c.queue.Name,
		"consumer_tag", consumerTag,
		"prefetch", prefetch,
	)

	c.consume(ctx, msgs)

	return nil
}

// consume drives the delivery loop until the context is cancelled,
// Shutdown is called, or the broker closes the channel. Each delivery
// is settled on its own: a failure is expressed through ack/nack and
// parking only, and never cancels the other in-flight messages.
// Deliveries run on a detached context so an in-flight message can
// finish during shutdown.
func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	g := errgroup.Group{}
	g.SetLimit(50)

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("Consumer context cancelled")
				close(c.done)

				return
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					if err := c.processMessage(context.Background(), msg); err != nil {
						slog.Error("Message processing failed",
							"delivery_tag", msg.DeliveryTag, "error", err)
					}

					return nil
				})
			}
		}
	}()

	<-c.done
	_ = g.Wait()
}

// processMessage settles a single delivery.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	slog.Info("Received message", "delivery_tag", msg.DeliveryTag, "redelivered", msg.Redelivered)

	var ord order.Order
	if err := json.Unmarshal(msg.Body, &ord); err != nil {
		slog.Error("Failed to unmarshal order, parking message", "error", err)

		// Requeueing a payload that cannot be decoded would loop
		// forever. Park it with retries exhausted so operators can
		// inspect it, then take it off the queue. The ack is only
		// valid once the inbox row exists; if parking fails the
		// message must stay on the broker.
		if parkErr := c.park(ctx, msg, err, true); parkErr != nil {
			if err := msg.Nack(false, true); err != nil {
				slog.Error("Failed to nack message after park failure", "error", err)
			}

			return parkErr
		}

		if err := msg.Ack(false); err != nil {
			slog.Error("Failed to ack malformed message", "error", err)
		}

		return err
	}

	if err := c.service.ProcessOrder(ctx, ord); err != nil {
		slog.Error("Failed to process order", "error", err, "order_id", ord.ID)

		if !msg.Redelivered {
			// First failure: let the broker redeliver once before
			// falling back to the inbox.
			if err := msg.Nack(false, true); err != nil {
				slog.Error("Failed to nack message", "error", err)
			}

			return err
		}

		// Ack only once the inbox row is the durable record; a
		// failed park followed by an ack would lose the message on
		// both sides.
		if parkErr := c.park(ctx, msg, err, false); parkErr != nil {
			if err := msg.Nack(false, true); err != nil {
				slog.Error("Failed to nack message after park failure", "error", err)
			}

			return parkErr
		}

		if err := msg.Ack(false); err != nil {
			slog.Error("Failed to ack parked message", "error", err)
		}

		return err
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return err
	}

	slog.Info("Message processed successfully", "order_id", ord.ID)

	return nil
}

// park saves a delivery in the inbox table. Messages parked as
// exhausted are kept for inspection only; others are retried by the
// inbox worker with backoff. A park error means no durable record
// exists and the caller must keep the message on the broker.
func (c *Consumer) park(ctx context.Context, msg amqp.Delivery, cause error, exhausted bool) error {
	maxRetries := viper.GetInt("rabbitmq.inbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 5
	}

	retryCount := 0
	if exhausted {
		retryCount = maxRetries
	}

	messageID := msg.MessageId
	if messageID == "" {
		messageID = uuid.NewString()
	}

	now := time.Now()
	err := c.inboxRepo.Insert(ctx, inbox.InboxMessage{
		MessageID:   messageID,
		QueueName:   c.queue.Name,
		RoutingKey:  msg.RoutingKey,
		Payload:     msg.Body,
		ContentType: msg.ContentType,
		RetryCount:  retryCount,
		MaxRetries:  maxRetries,
		LastError:   cause.Error(),
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
		DeliveryTag: msg.DeliveryTag,
	})
	if err != nil {
		slog.Error("Failed to park message in inbox",
			"error", err,
			"message_id", messageID,
			"delivery_tag", msg.DeliveryTag,
		)

		return err
	}

	return nil
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	// Wait for processing to finish with timeout
	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
