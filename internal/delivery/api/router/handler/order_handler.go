package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/delivery/api/middleware"
	"storefront/internal/delivery/api/response"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

// OrderHandlerParams holds dependencies for OrderHandler, injected by Fx.
type OrderHandlerParams struct {
	fx.In

	OrderUC usecase.OrderUsecase
	Logger  *slog.Logger
}

// OrderHandler holds dependencies for order handlers
type OrderHandler struct {
	orderUC usecase.OrderUsecase
	logger  *slog.Logger
}

// NewOrderHandler is the constructor for OrderHandler
func NewOrderHandler(params OrderHandlerParams) *OrderHandler {
	return &OrderHandler{
		orderUC: params.OrderUC,
		logger:  params.Logger,
	}
}

// PlaceOrderRequest represents the request body for placing an order.
// Quantities and ids are range-checked by the usecase so that an empty list
// and a bad line produce distinct error codes.
type PlaceOrderRequest struct {
	Items []OrderLineRequest `json:"items"`
}

// OrderLineRequest is one requested product.
type OrderLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderItemResponse is one line of an order.
type OrderItemResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderResponse is the public view of an order. Items is omitted in listings.
type OrderResponse struct {
	ID          int64               `json:"id"`
	UserID      int64               `json:"user_id"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []OrderItemResponse `json:"items,omitempty"`
}

func toOrderResponse(o *entity.Order) OrderResponse {
	out := OrderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return out
}

// PlaceOrder handles POST /api/orders.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	scope, identity, err := scopeAndIdentity(c)
	if err != nil {
		return err
	}

	var req PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c)
	}

	input := &usecase.PlaceOrderInput{Items: make([]entity.OrderLine, 0, len(req.Items))}
	for _, item := range req.Items {
		input.Items = append(input.Items, entity.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orderUC.PlaceOrder(c.Request().Context(), scope.Session, identity, input)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, toOrderResponse(order), "Order placed")
}

// ListOrders handles GET /api/orders.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	scope, identity, err := scopeAndIdentity(c)
	if err != nil {
		return err
	}

	orders, err := h.orderUC.ListOrders(c.Request().Context(), scope.Session, identity)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}

	return response.Success(c, http.StatusOK, out, "")
}

// GetOrder handles GET /api/orders/:id.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	scope, identity, err := scopeAndIdentity(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		return response.ValidationError(c, "id must be a positive integer")
	}

	order, err := h.orderUC.GetOrder(c.Request().Context(), scope.Session, identity, orderID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, toOrderResponse(order), "")
}

func scopeAndIdentity(c echo.Context) (*deliverycontext.TenantScope, *entity.Identity, error) {
	scope, ok := middleware.TenantScope(c)
	if !ok {
		return nil, nil, domainerrors.ErrTenantMissing
	}
	identity, ok := middleware.Identity(c)
	if !ok {
		return nil, nil, domainerrors.ErrUnauthenticated
	}
	return scope, identity, nil
}
