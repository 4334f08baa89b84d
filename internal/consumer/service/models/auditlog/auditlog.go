package auditlog

// OrderStatusCreated is the status recorded for freshly created orders.
const OrderStatusCreated = "Created"

// AuditLogOrder is one audit trail entry forwarded to the order service.
type AuditLogOrder struct {
	OrderID     int64  `json:"orderId"`
	OrderItemID int64  `json:"orderItemId"`
	CustomerID  int64  `json:"customerId"`
	OrderStatus string `json:"orderStatus"`
}
