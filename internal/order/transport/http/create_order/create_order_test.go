package createorder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orderlab/oms/internal/order/service/models/order"
)

type fakeService struct {
	batches [][]order.Order
}

func (f *fakeService) BatchInsert(_ context.Context, orders []order.Order) ([]order.Order, error) {
	f.batches = append(f.batches, orders)

	out := make([]order.Order, len(orders))
	copy(out, orders)
	for i := range out {
		out[i].ID = int64(i + 1)
	}

	return out, nil
}

const validRequest = `{
	"orders": [
		{
			"customerId": 1,
			"deliveryAddress": "Red Square 1",
			"totalPriceCents": 500,
			"totalPriceCurrency": "RUB",
			"orderItems": [
				{
					"productId": 10,
					"quantity": 2,
					"productTitle": "mug",
					"priceCents": 250,
					"priceCurrency": "RUB"
				}
			]
		}
	]
}`

func TestBatchInsertCreatesOrders(t *testing.T) {
	svc := &fakeService{}
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(validRequest))
	rec := httptest.NewRecorder()

	BatchInsert(rec, req, svc)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if len(svc.batches) != 1 || len(svc.batches[0]) != 1 {
		t.Fatalf("service got %+v, want one order", svc.batches)
	}
	got := svc.batches[0][0]
	if got.CustomerID != 1 || got.TotalPriceCents != 500 {
		t.Fatalf("order = %+v, wrong fields", got)
	}
	if len(got.OrderItems) != 1 || got.OrderItems[0].Quantity != 2 {
		t.Fatalf("items = %+v, want one item with quantity 2", got.OrderItems)
	}
	if got.OrderItems[0].ProductTitle != "mug" {
		t.Fatalf("product title = %q, want mug", got.OrderItems[0].ProductTitle)
	}

	var resp []order.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != 1 {
		t.Fatalf("response = %+v, want order with id 1", resp)
	}
}

func TestBatchInsertAcceptsOrderWithoutItems(t *testing.T) {
	body := `{"orders": [{"customerId": 1, "deliveryAddress": "Red Square 1", "totalPriceCents": 500, "totalPriceCurrency": "RUB", "orderItems": []}]}`

	svc := &fakeService{}
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()

	BatchInsert(rec, req, svc)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(svc.batches) != 1 || len(svc.batches[0]) != 1 {
		t.Fatalf("service got %+v, want one order", svc.batches)
	}
	if len(svc.batches[0][0].OrderItems) != 0 {
		t.Fatalf("items = %+v, want none", svc.batches[0][0].OrderItems)
	}
}

func TestBatchInsertRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{not json`},
		{name: "empty orders", body: `{"orders": []}`},
		{name: "unknown currency", body: strings.Replace(validRequest, `"totalPriceCurrency": "RUB"`, `"totalPriceCurrency": "GBP"`, 1)},
		{name: "zero quantity", body: strings.Replace(validRequest, `"quantity": 2`, `"quantity": 0`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			BatchInsert(rec, req, svc)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if len(svc.batches) != 0 {
				t.Fatal("invalid request must not reach the service")
			}
		})
	}
}
