package event

import (
	"time"

	"github.com/orderlab/oms/internal/order/service/models/order"
)

// OrderCreated is the post-commit projection of a persisted order and
// its persisted items. It is never stored itself; it is the payload
// published to the order-created queue.
type OrderCreated struct {
	ID                 int64              `json:"id"`
	CustomerID         int64              `json:"customerId"`
	DeliveryAddress    string             `json:"deliveryAddress"`
	TotalPriceCents    int64              `json:"totalPriceCents"`
	TotalPriceCurrency string             `json:"totalPriceCurrency"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	OrderItems         []OrderCreatedItem `json:"orderItems"`
}

// OrderCreatedItem is a single line of an OrderCreated event.
type OrderCreatedItem struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"orderId"`
	ProductID     int64     `json:"productId"`
	Quantity      int       `json:"quantity"`
	ProductTitle  string    `json:"productTitle"`
	ProductUrl    string    `json:"productUrl"`
	PriceCents    int64     `json:"priceCents"`
	PriceCurrency string    `json:"priceCurrency"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromOrder builds an OrderCreated event from a persisted order.
// Identities must already be assigned.
func FromOrder(o order.Order) OrderCreated {
	items := make([]OrderCreatedItem, len(o.OrderItems))
	for i, item := range o.OrderItems {
		items[i] = OrderCreatedItem{
			ID:            item.ID,
			OrderID:       item.OrderID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			ProductTitle:  item.ProductTitle,
			ProductUrl:    item.ProductUrl,
			PriceCents:    item.PriceCents,
			PriceCurrency: item.PriceCurrency.String(),
			CreatedAt:     item.CreatedAt,
			UpdatedAt:     item.UpdatedAt,
		}
	}

	return OrderCreated{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		DeliveryAddress:    o.DeliveryAddress,
		TotalPriceCents:    o.TotalPriceCents,
		TotalPriceCurrency: o.TotalPriceCurrency.String(),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		OrderItems:         items,
	}
}
