// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"storefront/config"
	"storefront/internal/delivery/api/middleware"
	"storefront/internal/delivery/api/router/handler"
	"storefront/internal/domain/entity"
	"storefront/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	TenantHandler    *handler.TenantHandler
	AuthHandler      *handler.AuthHandler
	ProductHandler   *handler.ProductHandler
	OrderHandler     *handler.OrderHandler
	TenantMiddleware *middleware.TenantMiddleware
	AuthMiddleware   *middleware.AuthMiddleware
	Metrics          *metrics.Metrics
	Config           *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	tenantHandler    *handler.TenantHandler
	authHandler      *handler.AuthHandler
	productHandler   *handler.ProductHandler
	orderHandler     *handler.OrderHandler
	tenantMiddleware *middleware.TenantMiddleware
	authMiddleware   *middleware.AuthMiddleware
	metrics          *metrics.Metrics
	config           *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		tenantHandler:    params.TenantHandler,
		authHandler:      params.AuthHandler,
		productHandler:   params.ProductHandler,
		orderHandler:     params.OrderHandler,
		tenantMiddleware: params.TenantMiddleware,
		authMiddleware:   params.AuthMiddleware,
		metrics:          params.Metrics,
		config:           params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Process-level endpoints, reachable on any host
	e.GET("/health", handler.HealthCheck)
	if r.config.Metrics != nil && r.config.Metrics.Enabled && r.metrics != nil {
		e.GET(r.config.Metrics.Path, echo.WrapHandler(r.metrics.Handler()))
	}

	// Everything under /api is routed to the tenant named by the host
	api := e.Group("/api", r.tenantMiddleware.Resolve)
	api.GET("", r.tenantHandler.GetTenant)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
	}

	productsGroup := api.Group("/products")
	{
		productsGroup.GET("", r.productHandler.ListProducts)
		productsGroup.POST("", r.productHandler.CreateProduct,
			r.authMiddleware.Authenticate,
			r.authMiddleware.RequireRole(entity.RoleAdmin),
		)
	}

	ordersGroup := api.Group("/orders")
	ordersGroup.Use(r.authMiddleware.Authenticate)
	{
		ordersGroup.POST("", r.orderHandler.PlaceOrder)
		ordersGroup.GET("", r.orderHandler.ListOrders)
		ordersGroup.GET("/:id", r.orderHandler.GetOrder)
	}
}
