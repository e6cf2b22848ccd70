// Package context carries request-scoped values (request id, logger, tenant
// scope, identity) through context.Context and echo.Context.
package context

import (
	"context"
	"log/slog"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderXRequestID is the HTTP header name for request ID.
const HeaderXRequestID = "X-Request-Id"

// contextKey is unexported so no other package can collide with or forge these values.
type contextKey struct {
	name string
}

var (
	keyRequestID   = &contextKey{"request_id"}
	keyLogger      = &contextKey{"logger"}
	keyTenantScope = &contextKey{"tenant_scope"}
	keyIdentity    = &contextKey{"identity"}
)

// echoKeyRequestID is the echo.Context store key for the request id.
const echoKeyRequestID = "request_id"

// TenantScope is bound to every tenant-routed request. Session is valid only
// until the request ends.
type TenantScope struct {
	Subdomain string
	Database  string
	Session   repository.Session
}

// GetRequestID extracts the request ID from echo.Context.
// If not found, generates a new UUID.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(echoKeyRequestID).(string); ok && id != "" {
		return id
	}

	return uuid.New().String()
}

// SetRequestID sets the request ID in echo.Context.
func SetRequestID(c echo.Context, requestID string) {
	c.Set(echoKeyRequestID, requestID)
}

// GetRequestIDFromContext extracts the request ID from standard context.Context.
// If not found, returns empty string.
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(keyRequestID).(string); ok {
		return id
	}

	return ""
}

// WithRequestID returns a new context with the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// GetLogger extracts the request-scoped logger from context.Context.
// If not found, returns nil.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(keyLogger).(*slog.Logger); ok {
		return logger
	}

	return nil
}

// GetLoggerOrDefault extracts the request-scoped logger from context.Context.
// If not found, returns the provided fallback logger.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := GetLogger(ctx); logger != nil {
		return logger
	}

	return fallback
}

// WithLogger returns a new context with the logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, logger)
}

// WithTenantScope binds the resolved tenant to ctx.
func WithTenantScope(ctx context.Context, scope *TenantScope) context.Context {
	return context.WithValue(ctx, keyTenantScope, scope)
}

// GetTenantScope returns the tenant bound by the tenant middleware.
func GetTenantScope(ctx context.Context) (*TenantScope, bool) {
	scope, ok := ctx.Value(keyTenantScope).(*TenantScope)
	return scope, ok && scope != nil
}

// WithIdentity binds the authenticated caller to ctx.
func WithIdentity(ctx context.Context, identity *entity.Identity) context.Context {
	return context.WithValue(ctx, keyIdentity, identity)
}

// GetIdentity returns the caller set by the auth middleware.
func GetIdentity(ctx context.Context) (*entity.Identity, bool) {
	identity, ok := ctx.Value(keyIdentity).(*entity.Identity)
	return identity, ok && identity != nil
}
