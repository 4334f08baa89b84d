package createauditlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/orderlab/oms/internal/order/service/models/auditlog"
)

// service is an interface for the audit service layer.
type service interface {
	BatchInsert(ctx context.Context, logs []auditlog.AuditLogOrder) ([]auditlog.AuditLogOrder, error)
}

// entryInLogOrderRequest represents one audit entry in a log order request.
type entryInLogOrderRequest struct {
	OrderID     int64  `json:"orderId"     validate:"gt=0"`
	OrderItemID int64  `json:"orderItemId" validate:"gt=0"`
	CustomerID  int64  `json:"customerId"  validate:"gt=0"`
	OrderStatus string `json:"orderStatus" validate:"required"`
}

// toModel converts entryInLogOrderRequest to auditlog.AuditLogOrder.
func (r *entryInLogOrderRequest) toModel() auditlog.AuditLogOrder {
	return auditlog.AuditLogOrder{
		OrderID:     r.OrderID,
		OrderItemID: r.OrderItemID,
		CustomerID:  r.CustomerID,
		OrderStatus: r.OrderStatus,
	}
}

// logOrderRequest represents a log order request.
type logOrderRequest struct {
	Orders []entryInLogOrderRequest `json:"orders" validate:"required,min=1,dive"`
}

// Validate validates the log order request.
func (r *logOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

// logOrderResponse represents a log order response.
type logOrderResponse struct {
	Orders []auditlog.AuditLogOrder `json:"orders"`
}

// LogOrder handles the audit log batch insert request.
func LogOrder(w http.ResponseWriter, r *http.Request, service service) {
	logsReq := logOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&logsReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for audit log", "error", err)

		return
	}

	if err := logsReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for audit log", "error", err)

		return
	}

	logs := make([]auditlog.AuditLogOrder, len(logsReq.Orders))
	for i := range logsReq.Orders {
		logs[i] = logsReq.Orders[i].toModel()
	}

	insertedLogs, err := service.BatchInsert(r.Context(), logs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error performing audit log batch insert", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(logOrderResponse{Orders: insertedLogs}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response for audit log", "error", err)
	}
}
