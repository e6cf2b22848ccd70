package context

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", GetRequestIDFromContext(ctx))
	assert.Empty(t, GetRequestIDFromContext(context.Background()))

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.NotEmpty(t, GetRequestID(c))

	SetRequestID(c, "req-2")
	assert.Equal(t, "req-2", GetRequestID(c))
}

func TestTenantScopeAndIdentity(t *testing.T) {
	_, ok := GetTenantScope(context.Background())
	assert.False(t, ok)

	ctx := WithTenantScope(context.Background(), &TenantScope{Subdomain: "acme", Database: "acme_db"})
	ctx = WithIdentity(ctx, &entity.Identity{UserID: 7, Role: entity.RoleAdmin, Tenant: "acme"})

	scope, ok := GetTenantScope(ctx)
	assert.True(t, ok)
	assert.Equal(t, "acme_db", scope.Database)

	identity, ok := GetIdentity(ctx)
	assert.True(t, ok)
	assert.True(t, identity.HasRole(entity.RoleAdmin))

	// A string key with the same name must not be able to read the value.
	assert.Nil(t, ctx.Value("tenant_scope"))
}

func TestLoggerFallback(t *testing.T) {
	fallback := slog.Default()
	assert.Same(t, fallback, GetLoggerOrDefault(context.Background(), fallback))

	scoped := fallback.With(slog.String("tenant", "acme"))
	assert.Same(t, scoped, GetLoggerOrDefault(WithLogger(context.Background(), scoped), fallback))
}
