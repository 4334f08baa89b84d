package auditlog

import "time"

// OrderStatusCreated is the lifecycle status recorded for a freshly
// created order line.
const OrderStatusCreated = "Created"

// AuditLogOrder represents an audit log entry for order operations.
// One entry is produced per (order, order item) pair.
type AuditLogOrder struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"orderId"`
	OrderItemID int64     `json:"orderItemId"`
	CustomerID  int64     `json:"customerId"`
	OrderStatus string    `json:"orderStatus"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
