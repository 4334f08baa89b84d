package iauditrepo

import (
	"context"

	"github.com/orderlab/oms/internal/consumer/service/models/auditlog"
)

// IAuditRepository is interface for the audit log sink.
type IAuditRepository interface {
	SaveAuditLogs(ctx context.Context, auditLogs []auditlog.AuditLogOrder) error
}
