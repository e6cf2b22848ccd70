package postgres

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRepository_CreateAndAddItem(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectQuery(`INSERT INTO "orders" \("user_id","total_amount","created_at"\) VALUES .* RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(`INSERT INTO "order_items" .* RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	order := &entity.Order{UserID: 5, TotalAmount: decimal.RequireFromString("30.00"), CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), order))
	assert.Equal(t, int64(11), order.ID)

	item := &entity.OrderItem{OrderID: order.ID, ProductID: 1, Quantity: 3, Price: decimal.RequireFromString("10.00")}
	require.NoError(t, repo.AddItem(context.Background(), item))
	assert.Equal(t, int64(21), item.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_FindByIDForUserLoadsItems(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1 AND user_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total_amount"}).AddRow(11, 5, "30.00"))
	mock.ExpectQuery(`SELECT \* FROM "order_items" WHERE "order_items"."order_id" = \$1 ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price"}).
			AddRow(21, 11, 1, 3, "10.00"))

	order, err := repo.FindByIDForUser(context.Background(), 11, 5)

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("30").Equal(order.TotalAmount))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_FindByIDForOtherUser(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1 AND user_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByIDForUser(context.Background(), 11, 6)

	assert.True(t, errors.Is(err, repository.ErrOrderNotFound))
}

func TestOrderRepository_ListByUserNewestFirst(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE user_id = \$1 ORDER BY created_at DESC, id DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total_amount"}).
			AddRow(12, 5, "5.00").
			AddRow(11, 5, "30.00"))

	orders, err := repo.ListByUser(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(12), orders[0].ID)
}
