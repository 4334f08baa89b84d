package consumersvc

import (
	"context"
	"errors"
	"testing"

	"github.com/orderlab/oms/internal/consumer/service/models/auditlog"
	"github.com/orderlab/oms/internal/consumer/service/models/order"
)

type fakeAuditRepo struct {
	err     error
	batches [][]auditlog.AuditLogOrder
}

func (f *fakeAuditRepo) SaveAuditLogs(_ context.Context, logs []auditlog.AuditLogOrder) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, logs)

	return nil
}

func testOrder() order.Order {
	return order.Order{
		ID:         42,
		CustomerID: 7,
		OrderItems: []order.OrderItem{
			{ID: 100, OrderID: 42, ProductID: 1, Quantity: 2},
			{ID: 101, OrderID: 42, ProductID: 2, Quantity: 1},
		},
	}
}

func TestProcessOrderForwardsOneEntryPerItem(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := MustNewConsumerService(WithAuditRepository(repo))

	if err := svc.ProcessOrder(context.Background(), testOrder()); err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}

	if len(repo.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(repo.batches))
	}
	logs := repo.batches[0]
	if len(logs) != 2 {
		t.Fatalf("got %d entries, want 2", len(logs))
	}
	for i, log := range logs {
		if log.OrderID != 42 || log.CustomerID != 7 {
			t.Fatalf("entry %d = %+v, wrong order or customer", i, log)
		}
		if log.OrderStatus != auditlog.OrderStatusCreated {
			t.Fatalf("entry %d status = %q, want %q", i, log.OrderStatus, auditlog.OrderStatusCreated)
		}
	}
	if logs[0].OrderItemID != 100 || logs[1].OrderItemID != 101 {
		t.Fatalf("item ids = %d, %d; want 100, 101", logs[0].OrderItemID, logs[1].OrderItemID)
	}
}

func TestProcessOrderPropagatesSinkError(t *testing.T) {
	boom := errors.New("endpoint down")
	svc := MustNewConsumerService(WithAuditRepository(&fakeAuditRepo{err: boom}))

	if err := svc.ProcessOrder(context.Background(), testOrder()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestProcessOrderSkipsEmptyOrders(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := MustNewConsumerService(WithAuditRepository(repo))

	if err := svc.ProcessOrder(context.Background(), order.Order{ID: 1}); err != nil {
		t.Fatalf("ProcessOrder: %v", err)
	}
	if len(repo.batches) != 0 {
		t.Fatal("empty order must not reach the sink")
	}
}
