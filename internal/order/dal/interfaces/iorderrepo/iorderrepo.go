package iorderrepo

import (
	"context"

	"github.com/orderlab/oms/internal/order/service/models/order"
)

// IOrderRepository is an interface for the order postgres repository.
// BulkInsert returns the inserted rows in input order.
type IOrderRepository interface {
	BulkInsert(ctx context.Context, orders []order.Order) ([]order.Order, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}
