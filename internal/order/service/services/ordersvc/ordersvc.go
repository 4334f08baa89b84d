package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/orderlab/oms/internal/order/dal/interfaces/iordercache"
	"github.com/orderlab/oms/internal/order/dal/interfaces/iorderitemrepo"
	"github.com/orderlab/oms/internal/order/dal/interfaces/iorderrepo"
	"github.com/orderlab/oms/internal/order/dal/interfaces/ioutboxrepo"
	"github.com/orderlab/oms/internal/order/dal/interfaces/ipublisher"
	"github.com/orderlab/oms/internal/order/dal/postgres"
	"github.com/orderlab/oms/internal/order/dal/uow"
	"github.com/orderlab/oms/internal/order/service/models/event"
	"github.com/orderlab/oms/internal/order/service/models/order"
	"github.com/orderlab/oms/internal/order/service/models/orderitem"
	"github.com/orderlab/oms/internal/order/service/models/outbox"
)

// ErrRowCorrelation is returned when a bulk insert comes back with a
// row count that does not match the input, so generated identities
// cannot be assigned safely. The whole batch is rolled back.
var ErrRowCorrelation = errors.New("bulk insert returned unexpected row count")

// unitOfWork is the transaction scope the service drives. Commit and
// Rollback are idempotent once finalized.
type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
}

// OrderService is a service for managing orders.
type OrderService struct {
	pgClient   *postgres.Client
	publisher  ipublisher.IPublisher
	queueName  string
	outboxRepo ioutboxrepo.IOutboxRepository
	cache      iordercache.IOrderCache
	newUOW     func() unitOfWork
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(s.pgClient)
		}
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithPublisher sets the order-created publisher and the queue name
// used for outbox rows when a publish fails.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPublisher(publisher ipublisher.IPublisher, queueName string) option {
	return func(s *OrderService) {
		s.publisher = publisher
		s.queueName = queueName
	}
}

// WithOutboxRepository sets the outbox repository for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOutboxRepository(outboxRepo ioutboxrepo.IOutboxRepository) option {
	return func(s *OrderService) {
		s.outboxRepo = outboxRepo
	}
}

// WithOrderCache sets the best-effort order read cache.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderCache(cache iordercache.IOrderCache) option {
	return func(s *OrderService) {
		s.cache = cache
	}
}

// WithUnitOfWorkFactory overrides the unit of work constructor.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// BatchInsert creates multiple orders with their items in one
// transaction and, after the commit, publishes one order-created
// event per order. Any failure before the commit rolls the whole
// batch back; a publish failure after the commit parks the messages
// in the outbox and does not fail the call.
func (s *OrderService) BatchInsert(
	ctx context.Context,
	orders []order.Order,
) ([]order.Order, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "OrderService.BatchInsert")
	defer span.End()

	now := time.Now().UTC()
	for i := range orders {
		orders[i].CreatedAt = now
		orders[i].UpdatedAt = now
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	// no-op once the transaction is committed
	defer func() { _ = work.Rollback(ctx) }()

	inserted, err := work.OrderRepository().BulkInsert(ctx, orders)
	if err != nil {
		return nil, err
	}
	if len(inserted) != len(orders) {
		return nil, fmt.Errorf("%w: inserted %d orders, expected %d",
			ErrRowCorrelation, len(inserted), len(orders))
	}

	// rows come back in input order, correlation is positional
	for i := range orders {
		orders[i].ID = inserted[i].ID
	}

	itemCounts := make([]int, len(orders))
	orderItems := make([]orderitem.OrderItem, 0)
	for i, o := range orders {
		itemCounts[i] = len(o.OrderItems)
		for _, item := range o.OrderItems {
			item.OrderID = o.ID
			item.CreatedAt = now
			item.UpdatedAt = now
			orderItems = append(orderItems, item)
		}
	}

	insertedItems, err := work.OrderItemRepository().BulkInsert(ctx, orderItems)
	if err != nil {
		return nil, err
	}
	if len(insertedItems) != len(orderItems) {
		return nil, fmt.Errorf("%w: inserted %d order items, expected %d",
			ErrRowCorrelation, len(insertedItems), len(orderItems))
	}

	offset := 0
	for i := range orders {
		orders[i].OrderItems = insertedItems[offset : offset+itemCounts[i] : offset+itemCounts[i]]
		offset += itemCounts[i]
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	events := make([]event.OrderCreated, len(orders))
	for i, o := range orders {
		events[i] = event.FromOrder(o)
	}

	if err := s.publisher.PublishOrderCreated(ctx, events); err != nil {
		// The orders are durable; delivery falls back to the outbox
		// relay. Already-published events may be republished, which
		// at-least-once delivery tolerates.
		slog.Error("Failed to publish order created events, parking batch in outbox",
			"orders", len(events), "error", err)
		s.parkInOutbox(ctx, events, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, orders); err != nil {
			slog.Warn("Failed to cache created orders", "error", err)
		}
	}

	return orders, nil
}

// parkInOutbox writes one outbox row per event so the relay worker can
// republish them.
func (s *OrderService) parkInOutbox(ctx context.Context, events []event.OrderCreated, cause error) {
	if s.outboxRepo == nil {
		slog.Error("No outbox configured, order created events are lost", "orders", len(events))

		return
	}

	maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 5
	}

	now := time.Now().UTC()
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			slog.Error("Failed to marshal event for outbox", "order_id", ev.ID, "error", err)
			continue
		}

		msg := outbox.OutboxMessage{
			QueueName:   s.queueName,
			RoutingKey:  s.queueName,
			Payload:     payload,
			ContentType: "application/json",
			MaxRetries:  maxRetries,
			LastError:   cause.Error(),
			CreatedAt:   now,
			UpdatedAt:   now,
			NextRetryAt: now,
		}
		if err := s.outboxRepo.Insert(ctx, msg); err != nil {
			slog.Error("Failed to park order created event in outbox",
				"order_id", ev.ID, "error", err)
		}
	}
}

// GetOrders retrieves orders, optionally with their items, based on
// the filter. Page is 1-indexed.
func (s *OrderService) GetOrders(
	ctx context.Context,
	model orderitem.QueryOrderItemsModel,
) ([]order.Order, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "OrderService.GetOrders")
	defer span.End()

	page := model.Page
	if page < 1 {
		page = 1
	}

	if cached, hit := s.lookupCache(ctx, model, page); hit {
		return cached, nil
	}

	orderQuery := &order.QueryOrdersModel{
		Ids:         model.Ids,
		CustomerIds: model.CustomerIds,
		Limit:       model.PageSize,
		Offset:      (page - 1) * model.PageSize,
	}

	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, orderQuery)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	if !model.IncludeOrderItems {
		return orders, nil
	}

	orderItemQuery := &orderitem.QueryOrderItemsModel{}
	for _, o := range orders {
		orderItemQuery.OrderIds = append(orderItemQuery.OrderIds, o.ID)
	}
	orderItems, err := work.OrderItemRepository().Query(ctx, orderItemQuery)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		for _, item := range orderItems {
			if item.OrderID == orders[i].ID {
				orders[i].OrderItems = append(orders[i].OrderItems, item)
			}
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, orders); err != nil {
			slog.Warn("Failed to backfill order cache", "error", err)
		}
	}

	return orders, nil
}

// lookupCache serves a first-page ids-only lookup with items from the
// cache. Any miss falls through to the store.
func (s *OrderService) lookupCache(
	ctx context.Context,
	model orderitem.QueryOrderItemsModel,
	page int,
) ([]order.Order, bool) {
	if s.cache == nil || !model.IncludeOrderItems {
		return nil, false
	}
	if len(model.Ids) == 0 || len(model.CustomerIds) > 0 || page != 1 {
		return nil, false
	}
	if model.PageSize != 0 && model.PageSize < len(model.Ids) {
		return nil, false
	}

	orders, ok, err := s.cache.Get(ctx, model.Ids)
	if err != nil {
		slog.Warn("Order cache lookup failed", "error", err)

		return nil, false
	}

	return orders, ok
}
