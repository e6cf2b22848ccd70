package postgres

import (
	"testing"

	"storefront/config"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	conn := config.ConnectionConfig{Host: "db.internal", Port: "5432", UserName: "app", Password: "p w'd"}

	dsn := BuildDSN(conn, "acme_db", "")

	assert.Equal(t, `host=db.internal dbname=acme_db sslmode=disable port=5432 user=app password='p w\'d'`, dsn)
}

func TestBuildDSN_OmitsEmptyCredentials(t *testing.T) {
	dsn := BuildDSN(config.ConnectionConfig{Host: "localhost"}, "tenants_master", "require")

	assert.Equal(t, "host=localhost dbname=tenants_master sslmode=require", dsn)
}
