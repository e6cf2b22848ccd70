// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/domain/repository"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// gormTransactionManager implements the domain's TransactionManager interface using GORM.
type gormTransactionManager struct {
	db *gorm.DB
}

// gormRepositoryFactory implements the domain's RepositoryFactory interface.
// The held handle is either a pool-backed *gorm.DB or an open transaction;
// every repository it creates is bound to that handle.
type gormRepositoryFactory struct {
	db *gorm.DB
}

// UserRepo creates a user repository bound to the factory's handle.
func (f *gormRepositoryFactory) UserRepo() repository.UserRepository {
	return NewUserRepository(f.db)
}

// ProductRepo creates a product repository bound to the factory's handle.
func (f *gormRepositoryFactory) ProductRepo() repository.ProductRepository {
	return NewProductRepository(f.db)
}

// OrderRepo creates an order repository bound to the factory's handle.
func (f *gormRepositoryFactory) OrderRepo() repository.OrderRepository {
	return NewOrderRepository(f.db)
}

// NewTransactionManager is the constructor for gormTransactionManager.
func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

// Execute runs fn within a single READ COMMITTED transaction. Stock updates
// rely on row locks and guarded UPDATEs rather than a stricter isolation level.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "transaction not started")
	}

	// database/sql rolls the transaction back on its own if ctx is cancelled.
	tx := tm.db.WithContext(ctx).Begin(&sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	// Roll back if fn panics, then let the panic continue to echo's Recover.
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&gormRepositoryFactory{db: tx}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			// Keep the business error as the wrapped cause.
			return fmt.Errorf("transaction rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// session is the request-scoped handle handed out by a tenant pool lease.
type session struct {
	gormRepositoryFactory
	gormTransactionManager
}

// NewSession binds repositories and transactions to one tenant database handle.
func NewSession(db *gorm.DB) repository.Session {
	return &session{
		gormRepositoryFactory:  gormRepositoryFactory{db: db},
		gormTransactionManager: gormTransactionManager{db: db},
	}
}
