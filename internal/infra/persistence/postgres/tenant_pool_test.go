package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/infra/metrics"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestPool(t *testing.T, maxOpen int) (*tenantPool, *metrics.Metrics, func() error) {
	t.Helper()

	db, sqlDB, mock := newMockDB(t)
	mock.ExpectClose()

	m := metrics.New()
	pool := newTenantPool(
		entity.Tenant{Subdomain: "acme", Database: "acme_db"},
		db,
		[]*sql.DB{sqlDB},
		config.PoolConfig{MaxOpenConns: maxOpen, AcquireTimeout: 20 * time.Millisecond},
		m,
	)

	return pool, m, mock.ExpectationsWereMet
}

func TestTenantPool_AcquireIsBounded(t *testing.T) {
	pool, m, _ := newTestPool(t, 1)

	session, release, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, session)

	_, _, err = pool.Acquire(context.Background())
	assert.True(t, errors.Is(err, repository.ErrPoolExhausted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PoolExhaustions.WithLabelValues("acme")))

	release()
	release() // second call is a no-op

	_, release2, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestTenantPool_CancelledCallerIsNotExhaustion(t *testing.T) {
	pool, m, _ := newTestPool(t, 1)

	_, release, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = pool.Acquire(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, repository.ErrPoolExhausted))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.PoolExhaustions.WithLabelValues("acme")))
}

func TestTenantPool_CloseRejectsFurtherLeases(t *testing.T) {
	pool, _, expectationsMet := newTestPool(t, 2)

	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())
	assert.NoError(t, expectationsMet())

	_, _, err := pool.Acquire(context.Background())
	assert.True(t, errors.Is(err, repository.ErrTenantDatabaseUnavailable))
	assert.Equal(t, "acme", pool.Tenant().Subdomain)
}

func TestRegisterReplicas_OnlyProductReadsLeavePrimary(t *testing.T) {
	db, _, primary := newMockDB(t)

	replicaDB, replica, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = replicaDB.Close() })

	require.NoError(t, registerReplicas(db, []gorm.Dialector{postgres.New(postgres.Config{Conn: replicaDB})}))

	primary.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password", "role"}).
			AddRow(7, "Ann", "ann@example.com", "hash", "user"))
	replica.ExpectQuery(`SELECT \* FROM "products" ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "stock"}).
			AddRow(3, "Widget", "blue", "10.00", 5))

	session := NewSession(db)

	user, err := session.UserRepo().FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)

	products, err := session.ProductRepo().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)

	assert.NoError(t, primary.ExpectationsWereMet())
	assert.NoError(t, replica.ExpectationsWereMet())
}
