package rabbitmqrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/orderlab/oms/internal/order/dal/rabbitmq"
	"github.com/orderlab/oms/internal/order/service/models/event"
)

const defaultQueueName = "oms.order.created"

// OrderCreatedPublisher publishes order-created events to RabbitMQ,
// one message per order. It is invoked strictly after the database
// commit; its failures never roll the commit back.
type OrderCreatedPublisher struct {
	client *rabbitmq.Client
	queue  amqp.Queue
}

// MustNewOrderCreatedPublisher declares the order-created queue
// (idempotently) and returns a publisher bound to it.
func MustNewOrderCreatedPublisher(client *rabbitmq.Client) *OrderCreatedPublisher {
	queueName := viper.GetString("rabbitmq.order_created_queue")
	if queueName == "" {
		queueName = defaultQueueName
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		Exclusive:  false,
		AutoDelete: false,
	})
	if err != nil {
		panic(err)
	}

	return &OrderCreatedPublisher{
		client: client,
		queue:  queue,
	}
}

// Queue returns the declared queue name.
func (r *OrderCreatedPublisher) Queue() string {
	return r.queue.Name
}

// PublishOrderCreated serializes each event and publishes it
// individually. Publishing is detached from the request context: the
// orders are already committed, so an inbound cancellation must not
// abort the fan-out halfway.
func (r *OrderCreatedPublisher) PublishOrderCreated(
	ctx context.Context,
	events []event.OrderCreated,
) error {
	publishCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	g, _ := errgroup.WithContext(publishCtx)
	g.SetLimit(3)

	for _, ev := range events {
		g.Go(func() error {
			body, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("failed to marshal order created event: %w", err)
			}

			return r.client.Channel().Publish(
				"",
				r.queue.Name,
				false,
				false,
				amqp.Publishing{
					ContentType:  "application/json",
					DeliveryMode: amqp.Persistent,
					MessageId:    uuid.NewString(),
					Body:         body,
				},
			)
		})
	}

	return g.Wait()
}
