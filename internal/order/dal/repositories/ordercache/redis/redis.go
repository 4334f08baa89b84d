package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/orderlab/oms/internal/order/dal/redis"
	"github.com/orderlab/oms/internal/order/service/models/order"
)

// OrderCache is a best-effort Redis cache of orders (with items)
// keyed by order id. It only ever serves fully populated orders; a
// miss on any id falls back to the store.
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOrderCache creates a new order cache.
func NewOrderCache(client *redis.Client) *OrderCache {
	ttlSeconds := viper.GetInt("redis.order_ttl_seconds")
	if ttlSeconds == 0 {
		ttlSeconds = 300
	}

	return &OrderCache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}
}

func orderKey(id int64) string {
	return fmt.Sprintf("order-svc:order:%d", id)
}

// Set stores the given orders under their ids.
func (c *OrderCache) Set(ctx context.Context, orders []order.Order) error {
	pipe := c.client.RDB().Pipeline()
	for _, o := range orders {
		body, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("failed to marshal order for cache: %w", err)
		}
		pipe.Set(ctx, orderKey(o.ID), body, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache orders: %w", err)
	}

	return nil
}

// Get returns the cached orders for ids. ok is false when any id is
// missing; the caller must then read the store instead.
func (c *OrderCache) Get(ctx context.Context, ids []int64) ([]order.Order, bool, error) {
	if len(ids) == 0 {
		return []order.Order{}, true, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = orderKey(id)
	}

	values, err := c.client.RDB().MGet(ctx, keys...).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read order cache: %w", err)
	}

	orders := make([]order.Order, 0, len(ids))
	for _, v := range values {
		raw, isString := v.(string)
		if !isString {
			return nil, false, nil
		}

		var o order.Order
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal cached order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, true, nil
}
