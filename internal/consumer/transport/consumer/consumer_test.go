package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"

	"github.com/orderlab/oms/internal/consumer/service/models/inbox"
	"github.com/orderlab/oms/internal/consumer/service/models/order"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.acked = true

	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue

	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue

	return nil
}

type fakeService struct {
	err  error
	seen []order.Order
}

func (f *fakeService) ProcessOrder(_ context.Context, ord order.Order) error {
	f.seen = append(f.seen, ord)

	return f.err
}

type fakeInboxRepo struct {
	insertErr error
	parked    []inbox.InboxMessage
}

func (f *fakeInboxRepo) Insert(_ context.Context, msg inbox.InboxMessage) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.parked = append(f.parked, msg)

	return nil
}

func (f *fakeInboxRepo) GetPendingMessages(context.Context, int) ([]inbox.InboxMessage, error) {
	return nil, nil
}

func (f *fakeInboxRepo) Delete(context.Context, int64) error { return nil }

func (f *fakeInboxRepo) UpdateRetry(context.Context, int64, int, string, time.Time) error {
	return nil
}

func newTestConsumer(svc service, repo *fakeInboxRepo) *Consumer {
	return &Consumer{
		service:   svc,
		inboxRepo: repo,
		queue:     amqp.Queue{Name: "oms.order.created"},
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func delivery(body []byte, redelivered bool, ack *fakeAcknowledger) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Redelivered:  redelivered,
		ContentType:  "application/json",
		MessageId:    "msg-1",
		Body:         body,
	}
}

func validBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(order.Order{
		ID:         5,
		CustomerID: 9,
		OrderItems: []order.OrderItem{{ID: 50, OrderID: 5, ProductID: 3, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	return body
}

func TestProcessMessageAcksOnSuccess(t *testing.T) {
	svc := &fakeService{}
	repo := &fakeInboxRepo{}
	c := newTestConsumer(svc, repo)
	ack := &fakeAcknowledger{}

	if err := c.processMessage(context.Background(), delivery(validBody(t), false, ack)); err != nil {
		t.Fatalf("processMessage: %v", err)
	}

	if !ack.acked {
		t.Fatal("successful message must be acked")
	}
	if ack.nacked {
		t.Fatal("successful message must not be nacked")
	}
	if len(repo.parked) != 0 {
		t.Fatal("successful message must not be parked")
	}
	if len(svc.seen) != 1 || svc.seen[0].ID != 5 {
		t.Fatalf("service saw %+v, want order 5", svc.seen)
	}
}

func TestProcessMessageParksMalformedPayload(t *testing.T) {
	svc := &fakeService{}
	repo := &fakeInboxRepo{}
	c := newTestConsumer(svc, repo)
	ack := &fakeAcknowledger{}

	if err := c.processMessage(context.Background(), delivery([]byte("{not json"), false, ack)); err == nil {
		t.Fatal("expected unmarshal error")
	}

	if !ack.acked {
		t.Fatal("malformed message must be acked after parking")
	}
	if ack.nacked {
		t.Fatal("malformed message must not be requeued")
	}
	if len(repo.parked) != 1 {
		t.Fatalf("got %d parked messages, want 1", len(repo.parked))
	}
	parked := repo.parked[0]
	if parked.RetryCount != parked.MaxRetries {
		t.Fatalf("retry count = %d, want %d so the worker never retries it",
			parked.RetryCount, parked.MaxRetries)
	}
	if len(svc.seen) != 0 {
		t.Fatal("malformed message must not reach the service")
	}
}

func TestProcessMessageRequeuesFirstFailure(t *testing.T) {
	svc := &fakeService{err: errors.New("endpoint down")}
	repo := &fakeInboxRepo{}
	c := newTestConsumer(svc, repo)
	ack := &fakeAcknowledger{}

	if err := c.processMessage(context.Background(), delivery(validBody(t), false, ack)); err == nil {
		t.Fatal("expected processing error")
	}

	if !ack.nacked || !ack.requeue {
		t.Fatal("first failure must be nacked with requeue")
	}
	if ack.acked {
		t.Fatal("first failure must not be acked")
	}
	if len(repo.parked) != 0 {
		t.Fatal("first failure must not be parked")
	}
}

func TestProcessMessageParksRedeliveredFailure(t *testing.T) {
	svc := &fakeService{err: errors.New("endpoint down")}
	repo := &fakeInboxRepo{}
	c := newTestConsumer(svc, repo)
	ack := &fakeAcknowledger{}

	if err := c.processMessage(context.Background(), delivery(validBody(t), true, ack)); err == nil {
		t.Fatal("expected processing error")
	}

	if !ack.acked {
		t.Fatal("redelivered failure must be acked after parking")
	}
	if ack.nacked {
		t.Fatal("redelivered failure must not be requeued again")
	}
	if len(repo.parked) != 1 {
		t.Fatalf("got %d parked messages, want 1", len(repo.parked))
	}
	parked := repo.parked[0]
	if parked.RetryCount != 0 {
		t.Fatalf("retry count = %d, want 0 so the worker retries it", parked.RetryCount)
	}
	if parked.MessageID != "msg-1" {
		t.Fatalf("message id = %q, want msg-1", parked.MessageID)
	}
	if parked.QueueName != "oms.order.created" {
		t.Fatalf("queue name = %q, want oms.order.created", parked.QueueName)
	}
}

func TestProcessMessageRequeuesWhenParkingFails(t *testing.T) {
	svc := &fakeService{err: errors.New("endpoint down")}
	repo := &fakeInboxRepo{insertErr: errors.New("inbox store down")}
	c := newTestConsumer(svc, repo)
	ack := &fakeAcknowledger{}

	if err := c.processMessage(context.Background(), delivery(validBody(t), true, ack)); err == nil {
		t.Fatal("expected park error")
	}

	if ack.acked {
		t.Fatal("message without a durable inbox record must never be acked")
	}
	if !ack.nacked || !ack.requeue {
		t.Fatal("failed park must keep the message on the broker via nack with requeue")
	}
	if len(repo.parked) != 0 {
		t.Fatalf("got %d parked messages, want 0", len(repo.parked))
	}
}

func TestProcessMessageRequeuesMalformedWhenParkingFails(t *testing.T) {
	svc := &fakeService{}
	repo := &fakeInboxRepo{insertErr: errors.New("inbox store down")}
	c := newTestConsumer(svc, repo)
	ack := &fakeAcknowledger{}

	if err := c.processMessage(context.Background(), delivery([]byte("{not json"), false, ack)); err == nil {
		t.Fatal("expected park error")
	}

	if ack.acked {
		t.Fatal("malformed message without a durable inbox record must never be acked")
	}
	if !ack.nacked || !ack.requeue {
		t.Fatal("failed park must keep the message on the broker via nack with requeue")
	}
}

func TestConsumeIsolatesFailuresBetweenDeliveries(t *testing.T) {
	svc := &flakyService{failID: 1}
	repo := &fakeInboxRepo{}
	c := newTestConsumer(svc, repo)

	failingAck := &fakeAcknowledger{}
	healthyAck := &fakeAcknowledger{}

	msgs := make(chan amqp.Delivery, 2)
	msgs <- delivery(bodyFor(t, 1), false, failingAck)
	msgs <- delivery(bodyFor(t, 2), false, healthyAck)
	close(msgs)

	c.consume(context.Background(), msgs)

	if !failingAck.nacked || !failingAck.requeue {
		t.Fatal("failing delivery must be nacked with requeue")
	}
	if !healthyAck.acked {
		t.Fatal("a failure on one delivery must not poison the next one")
	}
	if healthyAck.nacked {
		t.Fatal("successful delivery must not be nacked")
	}
	if svc.calls() != 2 {
		t.Fatalf("service saw %d orders, want 2", svc.calls())
	}
}

// flakyService fails deliveries for one specific order and succeeds
// for all others.
type flakyService struct {
	mu     sync.Mutex
	failID int64
	seen   []order.Order
}

func (f *flakyService) ProcessOrder(_ context.Context, ord order.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = append(f.seen, ord)
	if ord.ID == f.failID {
		return errors.New("endpoint down")
	}

	return nil
}

func (f *flakyService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.seen)
}

func bodyFor(t *testing.T, id int64) []byte {
	t.Helper()
	body, err := json.Marshal(order.Order{
		ID:         id,
		CustomerID: 9,
		OrderItems: []order.OrderItem{{ID: 50, OrderID: id, ProductID: 3, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	return body
}
