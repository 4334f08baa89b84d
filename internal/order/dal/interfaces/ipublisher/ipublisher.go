package ipublisher

import (
	"context"

	"github.com/orderlab/oms/internal/order/service/models/event"
)

// IPublisher hands order-created events to the message channel, one
// message per event. It is called strictly after the database commit.
type IPublisher interface {
	PublishOrderCreated(ctx context.Context, events []event.OrderCreated) error
}
