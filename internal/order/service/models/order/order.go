package order

import (
	"time"

	"github.com/orderlab/oms/internal/order/service/models/currency"
	"github.com/orderlab/oms/internal/order/service/models/orderitem"
)

// Order represents an order in the system. The total price is
// caller-supplied and is not reconciled against the item prices.
type Order struct {
	ID                 int64                 `json:"id"`
	CustomerID         int64                 `json:"customerId"`
	DeliveryAddress    string                `json:"deliveryAddress"`
	TotalPriceCents    int64                 `json:"totalPriceCents"`
	TotalPriceCurrency currency.Currency     `json:"totalPriceCurrency"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
	OrderItems         []orderitem.OrderItem `json:"orderItems"`
}
