package postgres

import (
	"context"
	"testing"

	"storefront/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantDirectory_FindBySubdomain(t *testing.T) {
	db, _, mock := newMockDB(t)
	dir := NewTenantDirectory(db)

	mock.ExpectQuery(`SELECT \* FROM "tenants" WHERE subdomain = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"subdomain", "db_name"}).AddRow("acme", "acme_db"))

	tenant, err := dir.FindBySubdomain(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, "acme", tenant.Subdomain)
	assert.Equal(t, "acme_db", tenant.Database)
}

func TestTenantDirectory_NotFound(t *testing.T) {
	db, _, mock := newMockDB(t)
	dir := NewTenantDirectory(db)

	mock.ExpectQuery(`SELECT \* FROM "tenants"`).WillReturnRows(sqlmock.NewRows([]string{"subdomain", "db_name"}))

	_, err := dir.FindBySubdomain(context.Background(), "ghost")

	assert.True(t, errors.Is(err, repository.ErrTenantNotFound))
}

func TestTenantDirectory_StoreFailureIsNotNotFound(t *testing.T) {
	db, _, mock := newMockDB(t)
	dir := NewTenantDirectory(db)

	mock.ExpectQuery(`SELECT \* FROM "tenants"`).WillReturnError(errors.New("connection refused"))

	_, err := dir.FindBySubdomain(context.Background(), "acme")

	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrTenantNotFound))
}
