package iauditrepo

import (
	"context"

	"github.com/orderlab/oms/internal/order/service/models/auditlog"
)

// IAuditRepository is an interface for the audit log postgres
// repository. BulkInsert returns the inserted rows in input order.
type IAuditRepository interface {
	BulkInsert(ctx context.Context, logs []auditlog.AuditLogOrder) ([]auditlog.AuditLogOrder, error)
}
