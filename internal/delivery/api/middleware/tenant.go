package middleware

import (
	"log/slog"
	"net"
	"net/netip"
	"strings"

	deliverycontext "storefront/internal/delivery/context"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// TenantMiddleware routes each request to the database of the tenant named by
// the first label of its Host header.
type TenantMiddleware struct {
	resolver repository.TenantResolver
	logger   *slog.Logger
}

// TenantMiddlewareParams holds dependencies for TenantMiddleware, injected by Fx.
type TenantMiddlewareParams struct {
	fx.In

	Resolver repository.TenantResolver
	Logger   *slog.Logger
}

// NewTenantMiddleware is the constructor for TenantMiddleware.
func NewTenantMiddleware(params TenantMiddlewareParams) *TenantMiddleware {
	return &TenantMiddleware{
		resolver: params.Resolver,
		logger:   params.Logger,
	}
}

// Resolve binds a TenantScope to the request and holds one connection lease
// until the handler chain returns.
func (m *TenantMiddleware) Resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		subdomain, ok := SubdomainFromHost(c.Request().Host)
		if !ok {
			return domainerrors.ErrTenantMissing
		}

		ctx := c.Request().Context()

		pool, err := m.resolver.Resolve(ctx, subdomain)
		if err != nil {
			return resolveError(err)
		}

		session, release, err := pool.Acquire(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrPoolExhausted) {
				return domainerrors.ErrPoolExhausted
			}
			return resolveError(err)
		}
		defer release()

		tenant := pool.Tenant()
		logger := deliverycontext.GetLoggerOrDefault(ctx, m.logger).With(slog.String("tenant", tenant.Subdomain))

		ctx = deliverycontext.WithTenantScope(ctx, &deliverycontext.TenantScope{
			Subdomain: tenant.Subdomain,
			Database:  tenant.Database,
			Session:   session,
		})
		ctx = deliverycontext.WithLogger(ctx, logger)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

func resolveError(err error) error {
	switch {
	case errors.Is(err, repository.ErrTenantNotFound):
		return domainerrors.ErrTenantNotFound
	case errors.Is(err, repository.ErrTenantDirectoryUnavailable):
		return domainerrors.ErrTenantDirectoryUnavailable.WrapMessage(err.Error())
	case errors.Is(err, repository.ErrTenantDatabaseUnavailable):
		return domainerrors.ErrTenantDatabaseUnavailable.WrapMessage(err.Error())
	default:
		return errors.Wrap(err, "failed to reach tenant database")
	}
}

// SubdomainFromHost returns the lower-cased first label of host, without port.
// IP literals and hosts with an empty first label do not name a tenant.
func SubdomainFromHost(host string) (string, bool) {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")

	if host == "" {
		return "", false
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return "", false
	}

	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return "", false
	}

	return strings.ToLower(label), true
}

// TenantScope returns the scope bound by Resolve.
func TenantScope(c echo.Context) (*deliverycontext.TenantScope, bool) {
	return deliverycontext.GetTenantScope(c.Request().Context())
}
