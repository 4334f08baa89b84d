package iorderitemrepo

import (
	"context"

	"github.com/orderlab/oms/internal/order/service/models/orderitem"
)

// IOrderItemRepository is an interface for the order item postgres
// repository. BulkInsert returns the inserted rows in input order.
type IOrderItemRepository interface {
	BulkInsert(ctx context.Context, orderItems []orderitem.OrderItem) ([]orderitem.OrderItem, error)
	Query(ctx context.Context, filter *orderitem.QueryOrderItemsModel) ([]orderitem.OrderItem, error)
}
