package listorders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orderlab/oms/internal/order/service/models/order"
	"github.com/orderlab/oms/internal/order/service/models/orderitem"
)

type fakeService struct {
	lastFilter orderitem.QueryOrderItemsModel
}

func (f *fakeService) GetOrders(
	_ context.Context,
	model orderitem.QueryOrderItemsModel,
) ([]order.Order, error) {
	f.lastFilter = model

	return []order.Order{{ID: 1}}, nil
}

func TestListOrdersDecodesQuery(t *testing.T) {
	svc := &fakeService{}
	req := httptest.NewRequest(
		http.MethodGet,
		"/api/orders?ids=1&ids=2&customerIds=5&page=3&pageSize=20&includeOrderItems=true",
		nil,
	)
	rec := httptest.NewRecorder()

	ListOrders(rec, req, svc)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	got := svc.lastFilter
	if len(got.Ids) != 2 || got.Ids[0] != 1 || got.Ids[1] != 2 {
		t.Fatalf("ids = %v, want [1 2]", got.Ids)
	}
	if len(got.CustomerIds) != 1 || got.CustomerIds[0] != 5 {
		t.Fatalf("customer ids = %v, want [5]", got.CustomerIds)
	}
	if got.Page != 3 || got.PageSize != 20 {
		t.Fatalf("page/pageSize = %d/%d, want 3/20", got.Page, got.PageSize)
	}
	if !got.IncludeOrderItems {
		t.Fatal("includeOrderItems must decode as true")
	}
}

func TestListOrdersRejectsMalformedQuery(t *testing.T) {
	svc := &fakeService{}
	req := httptest.NewRequest(http.MethodGet, "/api/orders?ids=abc", nil)
	rec := httptest.NewRecorder()

	ListOrders(rec, req, svc)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
