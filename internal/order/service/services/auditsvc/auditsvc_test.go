package auditsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/orderlab/oms/internal/order/dal/interfaces/iauditrepo"
	"github.com/orderlab/oms/internal/order/service/models/auditlog"
)

type fakeAuditRepo struct {
	nextID     int64
	insertErr  error
	shortByOne bool

	inserted []auditlog.AuditLogOrder
}

func (f *fakeAuditRepo) BulkInsert(
	_ context.Context,
	logs []auditlog.AuditLogOrder,
) ([]auditlog.AuditLogOrder, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}

	out := make([]auditlog.AuditLogOrder, len(logs))
	copy(out, logs)
	for i := range out {
		f.nextID++
		out[i].ID = f.nextID
	}
	if f.shortByOne && len(out) > 0 {
		out = out[:len(out)-1]
	}
	f.inserted = append(f.inserted, out...)

	return out, nil
}

type fakeUOW struct {
	repo *fakeAuditRepo

	committed  bool
	rolledBack bool
}

func (f *fakeUOW) Begin(context.Context) error { return nil }

func (f *fakeUOW) Commit(context.Context) error {
	f.committed = true

	return nil
}

func (f *fakeUOW) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}

	return nil
}

func (f *fakeUOW) AuditRepository() iauditrepo.IAuditRepository { return f.repo }

func newTestService(u *fakeUOW) *AuditService {
	return MustNewAuditService(
		WithUnitOfWorkFactory(func() unitOfWork { return u }),
	)
}

func twoLogs() []auditlog.AuditLogOrder {
	return []auditlog.AuditLogOrder{
		{OrderID: 1, OrderItemID: 10, CustomerID: 5, OrderStatus: auditlog.OrderStatusCreated},
		{OrderID: 1, OrderItemID: 11, CustomerID: 5, OrderStatus: auditlog.OrderStatusCreated},
	}
}

func TestBatchInsertCommitsAndAssignsIdentities(t *testing.T) {
	u := &fakeUOW{repo: &fakeAuditRepo{}}
	svc := newTestService(u)

	inserted, err := svc.BatchInsert(context.Background(), twoLogs())
	if err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	if !u.committed {
		t.Fatal("expected transaction to be committed")
	}
	if len(inserted) != 2 {
		t.Fatalf("got %d logs, want 2", len(inserted))
	}
	if inserted[0].ID != 1 || inserted[1].ID != 2 {
		t.Fatalf("log ids = %d, %d; want 1, 2", inserted[0].ID, inserted[1].ID)
	}
	if inserted[0].CreatedAt.IsZero() || inserted[0].UpdatedAt.IsZero() {
		t.Fatal("timestamps must be assigned")
	}
}

func TestBatchInsertRollsBackOnFailure(t *testing.T) {
	boom := errors.New("insert failed")
	u := &fakeUOW{repo: &fakeAuditRepo{insertErr: boom}}
	svc := newTestService(u)

	if _, err := svc.BatchInsert(context.Background(), twoLogs()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if u.committed {
		t.Fatal("failed batch must not commit")
	}
	if !u.rolledBack {
		t.Fatal("failed batch must roll back")
	}
}

func TestBatchInsertDetectsRowCountMismatch(t *testing.T) {
	u := &fakeUOW{repo: &fakeAuditRepo{shortByOne: true}}
	svc := newTestService(u)

	_, err := svc.BatchInsert(context.Background(), twoLogs())
	if !errors.Is(err, ErrRowCorrelation) {
		t.Fatalf("err = %v, want ErrRowCorrelation", err)
	}
	if u.committed {
		t.Fatal("mismatched batch must not commit")
	}
}
