package iordercache

import (
	"context"

	"github.com/orderlab/oms/internal/order/service/models/order"
)

// IOrderCache is a best-effort read cache of orders (with items) keyed
// by order id. A miss on any requested id is reported via ok=false.
type IOrderCache interface {
	Set(ctx context.Context, orders []order.Order) error
	Get(ctx context.Context, ids []int64) (orders []order.Order, ok bool, err error)
}
