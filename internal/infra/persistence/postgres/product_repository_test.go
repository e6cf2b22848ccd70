package postgres

import (
	"context"
	"testing"

	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_FindForUpdateLocksRow(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "stock"}).
			AddRow(3, "Widget", "blue", "10.00", 5))

	product, err := repo.FindForUpdate(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, int64(3), product.ID)
	assert.True(t, decimal.RequireFromString("10.00").Equal(product.Price))
	assert.Equal(t, 5, product.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindForUpdateNotFound(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindForUpdate(context.Background(), 99)

	assert.True(t, errors.Is(err, repository.ErrProductNotFound))
}

func TestProductRepository_DecrementStockIsGuarded(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(`UPDATE "products" SET "stock"=stock - \$1 WHERE id = \$2 AND stock >= \$3`).
		WithArgs(3, 7, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DecrementStock(context.Background(), 7, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_DecrementStockConflict(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(`UPDATE "products" SET "stock"=stock - \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DecrementStock(context.Background(), 7, 3)

	assert.True(t, errors.Is(err, repository.ErrStockConflict))
}

func TestProductRepository_DecrementStockCheckViolation(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(`UPDATE "products"`).
		WillReturnError(&pgconn.PgError{Code: sqlStateCheckViolation})

	err := repo.DecrementStock(context.Background(), 7, 3)

	assert.True(t, errors.Is(err, repository.ErrStockConflict))
}

func TestProductRepository_Create(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`INSERT INTO "products" .* RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	product := &entity.Product{Name: "Gadget", Price: decimal.RequireFromString("4.50"), Stock: 10}
	require.NoError(t, repo.Create(context.Background(), product))
	assert.Equal(t, int64(12), product.ID)
}

func TestProductRepository_CreateCheckViolation(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`INSERT INTO "products"`).
		WillReturnError(&pgconn.PgError{Code: sqlStateCheckViolation})

	err := repo.Create(context.Background(), &entity.Product{Name: "Broken", Stock: -1})

	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestProductRepository_ListOrdersByID(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products" ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}).
			AddRow(1, "A", "1.00", 1).
			AddRow(2, "B", "2.00", 0))

	products, err := repo.List(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "B", products[1].Name)
}
