package handler

import (
	"net/http"

	"storefront/internal/delivery/api/middleware"
	"storefront/internal/delivery/api/response"
	domainerrors "storefront/internal/domain/errors"

	"github.com/labstack/echo/v4"
)

// TenantHandler exposes the tenant a request was routed to.
type TenantHandler struct{}

// NewTenantHandler creates a new TenantHandler instance
func NewTenantHandler() *TenantHandler {
	return &TenantHandler{}
}

// TenantInfoResponse names the resolved tenant and its database.
type TenantInfoResponse struct {
	Tenant   string `json:"tenant"`
	Database string `json:"database"`
}

// GetTenant handles GET /api.
func (h *TenantHandler) GetTenant(c echo.Context) error {
	scope, ok := middleware.TenantScope(c)
	if !ok {
		return domainerrors.ErrTenantMissing
	}

	return response.Success(c, http.StatusOK, TenantInfoResponse{
		Tenant:   scope.Subdomain,
		Database: scope.Database,
	}, "")
}

// HealthCheck reports process liveness. It is not tenant-scoped.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "")
}
