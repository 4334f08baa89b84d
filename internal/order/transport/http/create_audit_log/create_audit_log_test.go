package createauditlog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orderlab/oms/internal/order/service/models/auditlog"
)

type fakeService struct {
	batches [][]auditlog.AuditLogOrder
}

func (f *fakeService) BatchInsert(
	_ context.Context,
	logs []auditlog.AuditLogOrder,
) ([]auditlog.AuditLogOrder, error) {
	f.batches = append(f.batches, logs)

	out := make([]auditlog.AuditLogOrder, len(logs))
	copy(out, logs)
	for i := range out {
		out[i].ID = int64(i + 1)
	}

	return out, nil
}

func TestLogOrderSavesBatch(t *testing.T) {
	body := `{"orders": [
		{"orderId": 1, "orderItemId": 10, "customerId": 5, "orderStatus": "Created"},
		{"orderId": 1, "orderItemId": 11, "customerId": 5, "orderStatus": "Created"}
	]}`

	svc := &fakeService{}
	req := httptest.NewRequest(http.MethodPost, "/api/audit/log-order", strings.NewReader(body))
	rec := httptest.NewRecorder()

	LogOrder(rec, req, svc)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if len(svc.batches) != 1 || len(svc.batches[0]) != 2 {
		t.Fatalf("service got %+v, want one batch of two", svc.batches)
	}
	if svc.batches[0][1].OrderItemID != 11 {
		t.Fatalf("second entry item id = %d, want 11", svc.batches[0][1].OrderItemID)
	}

	var resp logOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Orders) != 2 || resp.Orders[0].ID != 1 || resp.Orders[1].ID != 2 {
		t.Fatalf("response = %+v, want assigned ids", resp)
	}
	if !strings.Contains(rec.Body.String(), `"orders"`) {
		t.Fatalf("response body %q must wrap logs in an orders envelope", rec.Body.String())
	}
}

func TestLogOrderRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{not json`},
		{name: "empty batch", body: `{"orders": []}`},
		{name: "missing status", body: `{"orders": [{"orderId": 1, "orderItemId": 10, "customerId": 5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			req := httptest.NewRequest(http.MethodPost, "/api/audit/log-order", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			LogOrder(rec, req, svc)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if len(svc.batches) != 0 {
				t.Fatal("invalid request must not reach the service")
			}
		})
	}
}
