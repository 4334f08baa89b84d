package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/orderlab/oms/internal/order/dal/postgres"
	"github.com/orderlab/oms/internal/order/service/models/currency"
	"github.com/orderlab/oms/internal/order/service/models/order"
	"github.com/orderlab/oms/internal/order/service/models/orderitem"
)

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id                 int64     `db:"id"`
	CustomerId         int64     `db:"customer_id"`
	DeliveryAddress    string    `db:"delivery_address"`
	TotalPriceCents    int64     `db:"total_price_cents"`
	TotalPriceCurrency string    `db:"total_price_currency"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	cur, err := currency.ParseCurrency(o.TotalPriceCurrency)
	if err != nil {
		return nil, err
	}

	return &order.Order{
		ID:                 o.Id,
		CustomerID:         o.CustomerId,
		DeliveryAddress:    o.DeliveryAddress,
		TotalPriceCents:    o.TotalPriceCents,
		TotalPriceCurrency: cur,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		OrderItems:         []orderitem.OrderItem{},
	}, nil
}

// OrderRepository is a Postgres order repository.
type OrderRepository struct {
	conn postgres.Conn
}

// NewOrderRepository creates a new Postgres order repository.
func NewOrderRepository(conn postgres.Conn) *OrderRepository {
	return &OrderRepository{
		conn: conn,
	}
}

// BulkInsert inserts multiple orders in a single round-trip and
// returns them with assigned identities. The unnest is ordered by
// ordinality, so rows are inserted, and returned, in input order;
// identity correlation is positional, never by natural key.
func (r *OrderRepository) BulkInsert(ctx context.Context, orders []order.Order) ([]order.Order, error) {
	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	sql := `
		INSERT INTO orders (
			customer_id,
			delivery_address,
			total_price_cents,
			total_price_currency,
			created_at,
			updated_at
		)
		SELECT
			t.customer_id,
			t.delivery_address,
			t.total_price_cents,
			t.total_price_currency,
			t.created_at,
			t.updated_at
		FROM unnest($1::bigint[], $2::text[], $3::bigint[], $4::text[], $5::timestamptz[], $6::timestamptz[])
			WITH ORDINALITY
			AS t(customer_id, delivery_address, total_price_cents, total_price_currency, created_at, updated_at, ord)
		ORDER BY t.ord
		RETURNING
			id,
			customer_id,
			delivery_address,
			total_price_cents,
			total_price_currency,
			created_at,
			updated_at
	`

	customerIds := make([]int64, len(orders))
	deliveryAddresses := make([]string, len(orders))
	totalPriceCents := make([]int64, len(orders))
	totalPriceCurrencies := make([]string, len(orders))
	createdAts := make([]time.Time, len(orders))
	updatedAts := make([]time.Time, len(orders))

	for i, o := range orders {
		customerIds[i] = o.CustomerID
		deliveryAddresses[i] = o.DeliveryAddress
		totalPriceCents[i] = o.TotalPriceCents
		totalPriceCurrencies[i] = o.TotalPriceCurrency.String()
		createdAts[i] = o.CreatedAt
		updatedAts[i] = o.UpdatedAt
	}

	rows, err := r.conn.Query(ctx, sql,
		customerIds,
		deliveryAddresses,
		totalPriceCents,
		totalPriceCurrencies,
		createdAts,
		updatedAts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert orders: %w", err)
	}
	defer rows.Close()

	result := make([]order.Order, 0, len(orders))
	i := 0
	for rows.Next() {
		dal := OrderDal{}
		err := rows.Scan(
			&dal.Id,
			&dal.CustomerId,
			&dal.DeliveryAddress,
			&dal.TotalPriceCents,
			&dal.TotalPriceCurrency,
			&dal.CreatedAt,
			&dal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}

		if i < len(orders) {
			model.OrderItems = append(model.OrderItems, orders[i].OrderItems...)
		}
		i++

		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Query retrieves orders based on filter criteria.
func (r *OrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	sqlBuilder := strings.Builder{}
	sqlBuilder.WriteString(`
		SELECT
			id,
			customer_id,
			delivery_address,
			total_price_cents,
			total_price_currency,
			created_at,
			updated_at
		FROM orders
	`)

	args := []interface{}{}
	conditions := []string{}
	argIndex := 1

	if len(filter.Ids) > 0 {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argIndex))
		args = append(args, filter.Ids)
		argIndex++
	}

	if len(filter.CustomerIds) > 0 {
		conditions = append(conditions, fmt.Sprintf("customer_id = ANY($%d)", argIndex))
		args = append(args, filter.CustomerIds)
		argIndex++
	}

	if len(conditions) > 0 {
		sqlBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	sqlBuilder.WriteString(" ORDER BY id")

	if filter.Limit > 0 {
		sqlBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		sqlBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argIndex))
		args = append(args, filter.Offset)
	}

	rows, err := r.conn.Query(ctx, sqlBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var dal OrderDal
		err := rows.Scan(
			&dal.Id,
			&dal.CustomerId,
			&dal.DeliveryAddress,
			&dal.TotalPriceCents,
			&dal.TotalPriceCurrency,
			&dal.CreatedAt,
			&dal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
