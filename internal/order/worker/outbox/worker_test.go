package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"

	"github.com/orderlab/oms/internal/order/service/models/outbox"
)

type fakeChannel struct {
	err       error
	published []amqp.Publishing
	keys      []string
}

func (f *fakeChannel) Publish(
	_ string,
	key string,
	_ bool,
	_ bool,
	msg amqp.Publishing,
) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)

	return nil
}

type fakeOutboxRepo struct {
	pending []outbox.OutboxMessage

	deleted []int64
	retries []retryCall
}

type retryCall struct {
	id         int64
	retryCount int
}

func (f *fakeOutboxRepo) Insert(context.Context, outbox.OutboxMessage) error { return nil }

func (f *fakeOutboxRepo) GetPendingMessages(context.Context, int) ([]outbox.OutboxMessage, error) {
	return f.pending, nil
}

func (f *fakeOutboxRepo) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)

	return nil
}

func (f *fakeOutboxRepo) UpdateRetry(
	_ context.Context,
	id int64,
	retryCount int,
	_ string,
	_ time.Time,
) error {
	f.retries = append(f.retries, retryCall{id: id, retryCount: retryCount})

	return nil
}

func newTestWorker(repo *fakeOutboxRepo, ch *fakeChannel) *Worker {
	return &Worker{
		outboxRepo:   repo,
		channel:      ch,
		pollInterval: time.Second,
		batchSize:    10,
		stopCh:       make(chan struct{}),
	}
}

func pendingMessage(id int64) outbox.OutboxMessage {
	return outbox.OutboxMessage{
		ID:          id,
		QueueName:   "oms.order.created",
		RoutingKey:  "oms.order.created",
		Payload:     []byte(`{"id":1}`),
		ContentType: "application/json",
		MaxRetries:  5,
	}
}

func TestProcessMessagesPublishesAndDeletes(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []outbox.OutboxMessage{pendingMessage(1), pendingMessage(2)}}
	ch := &fakeChannel{}
	w := newTestWorker(repo, ch)

	w.processMessages(context.Background())

	if len(ch.published) != 2 {
		t.Fatalf("got %d published messages, want 2", len(ch.published))
	}
	if ch.keys[0] != "oms.order.created" {
		t.Fatalf("routing key = %q, want oms.order.created", ch.keys[0])
	}
	if ch.published[0].DeliveryMode != amqp.Persistent {
		t.Fatal("relayed messages must be persistent")
	}
	if ch.published[0].MessageId == "" {
		t.Fatal("relayed messages must carry a message id")
	}
	if ch.published[0].MessageId == ch.published[1].MessageId {
		t.Fatal("relayed messages must carry distinct message ids")
	}
	if len(repo.deleted) != 2 {
		t.Fatalf("deleted = %v, want both rows gone", repo.deleted)
	}
	if len(repo.retries) != 0 {
		t.Fatal("successful relay must not reschedule")
	}
}

func TestProcessMessagesReschedulesOnPublishFailure(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []outbox.OutboxMessage{pendingMessage(7)}}
	ch := &fakeChannel{err: errors.New("broker down")}
	w := newTestWorker(repo, ch)

	w.processMessages(context.Background())

	if len(repo.deleted) != 0 {
		t.Fatal("failed relay must keep the row")
	}
	if len(repo.retries) != 1 {
		t.Fatalf("got %d retry updates, want 1", len(repo.retries))
	}
	if repo.retries[0].id != 7 || repo.retries[0].retryCount != 1 {
		t.Fatalf("retry = %+v, want id 7 count 1", repo.retries[0])
	}
}
