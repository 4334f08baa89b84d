package consumersvc

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/orderlab/oms/internal/consumer/dal/interfaces/iauditrepo"
	"github.com/orderlab/oms/internal/consumer/service/models/auditlog"
	"github.com/orderlab/oms/internal/consumer/service/models/order"
)

// ConsumerService turns order-created messages into audit log batches
// and forwards them to the audit sink.
type ConsumerService struct {
	auditRepo iauditrepo.IAuditRepository
}

// option is a function that configures the ConsumerService.
type option func(*ConsumerService)

// MustNewConsumerService creates a new ConsumerService.
func MustNewConsumerService(opts ...option) *ConsumerService {
	s := &ConsumerService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.auditRepo == nil {
		panic("consumer service requires an audit repository")
	}

	return s
}

// WithAuditRepository sets the audit repository for the ConsumerService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditRepository(auditRepo iauditrepo.IAuditRepository) option {
	return func(s *ConsumerService) {
		s.auditRepo = auditRepo
	}
}

// ProcessOrder converts an order to audit log entries, one per item,
// and forwards them as a single batch.
func (s *ConsumerService) ProcessOrder(ctx context.Context, ord order.Order) error {
	ctx, span := otel.Tracer("consumersvc").Start(ctx, "ConsumerService.ProcessOrder")
	defer span.End()

	auditLogs := make([]auditlog.AuditLogOrder, 0, len(ord.OrderItems))
	for _, item := range ord.OrderItems {
		auditLogs = append(auditLogs, auditlog.AuditLogOrder{
			OrderID:     ord.ID,
			OrderItemID: item.ID,
			CustomerID:  ord.CustomerID,
			OrderStatus: auditlog.OrderStatusCreated,
		})
	}

	if len(auditLogs) == 0 {
		slog.Warn("Order has no items, nothing to audit", "order_id", ord.ID)

		return nil
	}

	if err := s.auditRepo.SaveAuditLogs(ctx, auditLogs); err != nil {
		slog.Error("Failed to save audit logs", "error", err, "order_id", ord.ID)

		return err
	}

	slog.Info("Audit logs processed", "order_id", ord.ID, "count", len(auditLogs))

	return nil
}
