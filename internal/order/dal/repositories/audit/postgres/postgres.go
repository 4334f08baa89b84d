package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/orderlab/oms/internal/order/dal/postgres"
	"github.com/orderlab/oms/internal/order/service/models/auditlog"
)

// AuditRepository is a Postgres audit log repository.
type AuditRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(conn postgres.Conn) *AuditRepository {
	return &AuditRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// BulkInsert saves audit log entries in one round-trip and returns
// them with assigned identities. A multi-row VALUES insert returns its
// RETURNING rows in input order, so correlation is positional.
func (r *AuditRepository) BulkInsert(
	ctx context.Context,
	logs []auditlog.AuditLogOrder,
) ([]auditlog.AuditLogOrder, error) {
	if len(logs) == 0 {
		return []auditlog.AuditLogOrder{}, nil
	}

	builder := r.sb.Insert("audit_log_order").
		Columns(
			"order_id",
			"order_item_id",
			"customer_id",
			"order_status",
			"created_at",
			"updated_at",
		).
		Suffix(`RETURNING
			id,
			order_id,
			order_item_id,
			customer_id,
			order_status,
			created_at,
			updated_at`)

	for _, l := range logs {
		builder = builder.Values(
			l.OrderID,
			l.OrderItemID,
			l.CustomerID,
			l.OrderStatus,
			l.CreatedAt,
			l.UpdatedAt,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit logs insert query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert audit logs: %w", err)
	}
	defer rows.Close()

	result := make([]auditlog.AuditLogOrder, 0, len(logs))
	for rows.Next() {
		var l auditlog.AuditLogOrder
		err := rows.Scan(
			&l.ID,
			&l.OrderID,
			&l.OrderItemID,
			&l.CustomerID,
			&l.OrderStatus,
			&l.CreatedAt,
			&l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		result = append(result, l)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
