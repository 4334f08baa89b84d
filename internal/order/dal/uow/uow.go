package uow

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/orderlab/oms/internal/order/dal/interfaces/iauditrepo"
	"github.com/orderlab/oms/internal/order/dal/interfaces/iorderitemrepo"
	"github.com/orderlab/oms/internal/order/dal/interfaces/iorderrepo"
	"github.com/orderlab/oms/internal/order/dal/postgres"
	auditrepo "github.com/orderlab/oms/internal/order/dal/repositories/audit/postgres"
	orderrepo "github.com/orderlab/oms/internal/order/dal/repositories/order/postgres"
	orderitemrepo "github.com/orderlab/oms/internal/order/dal/repositories/orderitem/postgres"
)

// UnitOfWork scopes all store operations of one business operation to
// a single transaction. It is owned by the call that created it and
// must not be shared between concurrent operations.
type UnitOfWork struct {
	client *postgres.Client
	tx     pgx.Tx

	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	auditRepo     iauditrepo.IAuditRepository
}

// NewUnitOfWork creates a unit of work bound to the client's pool.
// Until Begin is called, repositories run outside a transaction.
func NewUnitOfWork(client *postgres.Client) *UnitOfWork {
	return &UnitOfWork{
		client:        client,
		orderRepo:     orderrepo.NewOrderRepository(client.Pool()),
		orderItemRepo: orderitemrepo.NewOrderItemRepository(client.Pool()),
		auditRepo:     auditrepo.NewAuditRepository(client.Pool()),
	}
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *UnitOfWork) AuditRepository() iauditrepo.IAuditRepository {
	return u.auditRepo
}

// Begin opens the transaction and rebinds the repositories to it.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewOrderRepository(tx)
	u.orderItemRepo = orderitemrepo.NewOrderItemRepository(tx)
	u.auditRepo = auditrepo.NewAuditRepository(tx)

	return nil
}

// Commit commits the transaction. It is a no-op if the transaction is
// already finalized or was never begun.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil

	return tx.Commit(ctx)
}

// Rollback rolls the transaction back. It is a no-op if the
// transaction is already finalized or was never begun.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil

	return tx.Rollback(ctx)
}
