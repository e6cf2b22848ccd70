package middleware

import (
	"log/slog"

	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthMiddleware authenticates requests against the tenant they were routed to.
// It must run after TenantMiddleware.Resolve.
type AuthMiddleware struct {
	guard  usecase.GuardUsecase
	logger *slog.Logger
}

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Guard  usecase.GuardUsecase
	Logger *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		guard:  params.Guard,
		logger: params.Logger,
	}
}

// Authenticate binds the caller's Identity to the request.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		scope, ok := TenantScope(c)
		if !ok {
			return domainerrors.ErrTenantMissing
		}

		ctx := c.Request().Context()
		identity, err := m.guard.Authenticate(ctx, scope.Subdomain, scope.Session, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return err
		}

		logger := deliverycontext.GetLoggerOrDefault(ctx, m.logger).With(slog.Int64("user_id", identity.UserID))
		ctx = deliverycontext.WithIdentity(ctx, identity)
		ctx = deliverycontext.WithLogger(ctx, logger)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

// RequireRole rejects authenticated callers without role.
func (m *AuthMiddleware) RequireRole(role entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := Identity(c)
			if !ok {
				return domainerrors.ErrUnauthenticated
			}
			if !identity.HasRole(role) {
				return domainerrors.ErrForbidden
			}

			return next(c)
		}
	}
}

// Identity returns the caller bound by Authenticate.
func Identity(c echo.Context) (*entity.Identity, bool) {
	return deliverycontext.GetIdentity(c.Request().Context())
}
