package postgres

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionManager_CommitsOnSuccess(t *testing.T) {
	db, _, mock := newMockDB(t)
	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).AddRow(1, "Widget", "10.00", 5))
	mock.ExpectCommit()

	err := tm.Execute(context.Background(), func(f repository.RepositoryFactory) error {
		product, err := f.ProductRepo().FindForUpdate(context.Background(), 1)
		if err != nil {
			return err
		}
		assert.Equal(t, 5, product.Stock)
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	db, _, mock := newMockDB(t)
	tm := NewTransactionManager(db)
	businessErr := errors.New("insufficient stock")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tm.Execute(context.Background(), func(repository.RepositoryFactory) error {
		return businessErr
	})

	assert.True(t, errors.Is(err, businessErr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_RollsBackOnPanic(t *testing.T) {
	db, _, mock := newMockDB(t)
	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = tm.Execute(context.Background(), func(repository.RepositoryFactory) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_CancelledContext(t *testing.T) {
	db, _, mock := newMockDB(t)
	tm := NewTransactionManager(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := tm.Execute(ctx, func(repository.RepositoryFactory) error {
		called = true
		return nil
	})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_CancelledMidTransaction(t *testing.T) {
	db, _, mock := newMockDB(t)
	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).AddRow(1, "Widget", "10.00", 5))
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := tm.Execute(ctx, func(f repository.RepositoryFactory) error {
		if _, err := f.ProductRepo().FindForUpdate(ctx, 1); err != nil {
			return err
		}

		// Client disconnects between two statements.
		cancel()

		_, err := f.ProductRepo().FindForUpdate(ctx, 2)
		return err
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	// database/sql may issue the rollback from its own goroutine.
	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 5*time.Millisecond)
}

func TestTransactionManager_CommitFailure(t *testing.T) {
	db, _, mock := newMockDB(t)
	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection lost"))

	err := tm.Execute(context.Background(), func(repository.RepositoryFactory) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
}
