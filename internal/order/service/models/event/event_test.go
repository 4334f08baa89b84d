package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/orderlab/oms/internal/order/service/models/currency"
	"github.com/orderlab/oms/internal/order/service/models/order"
	"github.com/orderlab/oms/internal/order/service/models/orderitem"
)

func TestFromOrderProjectsAllFields(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := order.Order{
		ID:                 9,
		CustomerID:         4,
		DeliveryAddress:    "Main St 5",
		TotalPriceCents:    300,
		TotalPriceCurrency: currency.CurrencyEUR,
		CreatedAt:          now,
		UpdatedAt:          now,
		OrderItems: []orderitem.OrderItem{
			{
				ID:            90,
				OrderID:       9,
				ProductID:     3,
				Quantity:      2,
				ProductTitle:  "lamp",
				PriceCents:    150,
				PriceCurrency: currency.CurrencyEUR,
				CreatedAt:     now,
				UpdatedAt:     now,
			},
		},
	}

	ev := FromOrder(o)

	if ev.ID != 9 || ev.CustomerID != 4 {
		t.Fatalf("event = %+v, wrong identity fields", ev)
	}
	if ev.TotalPriceCurrency != "EUR" {
		t.Fatalf("currency = %q, want EUR", ev.TotalPriceCurrency)
	}
	if len(ev.OrderItems) != 1 {
		t.Fatalf("got %d items, want 1", len(ev.OrderItems))
	}
	item := ev.OrderItems[0]
	if item.ID != 90 || item.OrderID != 9 || item.PriceCurrency != "EUR" {
		t.Fatalf("item = %+v, wrong fields", item)
	}
}

func TestOrderCreatedWireShape(t *testing.T) {
	ev := OrderCreated{ID: 1, CustomerID: 2, TotalPriceCurrency: "RUB"}

	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"id", "customerId", "totalPriceCurrency", "orderItems"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("payload missing %q key", key)
		}
	}
}
