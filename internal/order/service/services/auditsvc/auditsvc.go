package auditsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/orderlab/oms/internal/order/dal/interfaces/iauditrepo"
	"github.com/orderlab/oms/internal/order/dal/postgres"
	"github.com/orderlab/oms/internal/order/dal/uow"
	"github.com/orderlab/oms/internal/order/service/models/auditlog"
)

// ErrRowCorrelation is returned when the bulk insert comes back with a
// row count that does not match the input.
var ErrRowCorrelation = errors.New("bulk insert returned unexpected row count")

// unitOfWork is the transaction scope the service drives.
type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	AuditRepository() iauditrepo.IAuditRepository
}

// AuditService persists audit log entries. It is the write side of the
// audit trail: one transactional bulk insert, no fan-out.
type AuditService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork
}

// option is a function that configures the AuditService.
type option func(*AuditService)

// MustNewAuditService creates a new AuditService.
func MustNewAuditService(opts ...option) *AuditService {
	s := &AuditService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(s.pgClient)
		}
	}

	return s
}

// WithPostgresClient sets the Postgres client for the AuditService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *AuditService) {
		s.pgClient = pgClient
	}
}

// WithUnitOfWorkFactory overrides the unit of work constructor.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *AuditService) {
		s.newUOW = factory
	}
}

// BatchInsert saves audit log entries in one transaction and returns
// them with assigned identities, correlated positionally.
func (s *AuditService) BatchInsert(
	ctx context.Context,
	logs []auditlog.AuditLogOrder,
) ([]auditlog.AuditLogOrder, error) {
	ctx, span := otel.Tracer("auditsvc").Start(ctx, "AuditService.BatchInsert")
	defer span.End()

	now := time.Now().UTC()
	for i := range logs {
		logs[i].CreatedAt = now
		logs[i].UpdatedAt = now
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	inserted, err := work.AuditRepository().BulkInsert(ctx, logs)
	if err != nil {
		return nil, err
	}
	if len(inserted) != len(logs) {
		return nil, fmt.Errorf("%w: inserted %d audit logs, expected %d",
			ErrRowCorrelation, len(inserted), len(logs))
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return inserted, nil
}
