package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/delivery/api/response"
	"storefront/internal/delivery/api/validator"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	mockRepo "storefront/internal/mocks/repository"
	mockUC "storefront/internal/mocks/usecase"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderHandlerFixtures struct {
	handler  *OrderHandler
	orderUC  *mockUC.MockOrderUsecase
	scope    *deliverycontext.TenantScope
	identity *entity.Identity
}

func createTestOrderHandler(t *testing.T) orderHandlerFixtures {
	orderUC := mockUC.NewMockOrderUsecase(t)
	return orderHandlerFixtures{
		handler: NewOrderHandler(OrderHandlerParams{
			OrderUC: orderUC,
			Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		}),
		orderUC:  orderUC,
		scope:    &deliverycontext.TenantScope{Subdomain: "acme", Database: "acme_db", Session: mockRepo.NewMockSession(t)},
		identity: &entity.Identity{UserID: 1, Role: entity.RoleUser, Tenant: "acme"},
	}
}

func (fx orderHandlerFixtures) context(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validator.New()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := deliverycontext.WithTenantScope(req.Context(), fx.scope)
	ctx = deliverycontext.WithIdentity(ctx, fx.identity)
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOrderHandler_PlaceOrder(t *testing.T) {
	fx := createTestOrderHandler(t)

	expectedInput := &usecase.PlaceOrderInput{Items: []entity.OrderLine{{ProductID: 10, Quantity: 3}}}
	fx.orderUC.On("PlaceOrder", mock.Anything, fx.scope.Session, fx.identity, expectedInput).
		Return(&entity.Order{
			ID:          7,
			UserID:      1,
			TotalAmount: decimal.RequireFromString("30.00"),
			Items:       []entity.OrderItem{{ID: 1, OrderID: 7, ProductID: 10, Quantity: 3, Price: decimal.RequireFromString("10.00")}},
		}, nil).Once()

	c, rec := fx.context(http.MethodPost, "/api/orders", `{"items":[{"product_id":10,"quantity":3}]}`)
	require.NoError(t, fx.handler.PlaceOrder(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.True(t, body.Success)
	data := body.Data.(map[string]any)
	assert.Equal(t, "30", data["total_amount"])
	assert.Len(t, data["items"], 1)
}

func TestOrderHandler_PlaceOrder_InsufficientStock(t *testing.T) {
	fx := createTestOrderHandler(t)
	fx.orderUC.On("PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domainerrors.ErrInsufficientStock.WithDetails("Widget")).Once()

	c, rec := fx.context(http.MethodPost, "/api/orders", `{"items":[{"product_id":10,"quantity":99}]}`)
	require.NoError(t, fx.handler.PlaceOrder(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Error.Code)
	assert.Equal(t, "Widget", body.Error.Details)
}

func TestOrderHandler_PlaceOrder_MalformedBody(t *testing.T) {
	fx := createTestOrderHandler(t)

	c, rec := fx.context(http.MethodPost, "/api/orders", `{"items":`)
	require.NoError(t, fx.handler.PlaceOrder(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decode(t, rec).Error.Code)
}

func TestOrderHandler_GetOrder(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		fx := createTestOrderHandler(t)
		c, rec := fx.context(http.MethodGet, "/api/orders/abc", "")
		c.SetParamNames("id")
		c.SetParamValues("abc")

		require.NoError(t, fx.handler.GetOrder(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not owned", func(t *testing.T) {
		fx := createTestOrderHandler(t)
		fx.orderUC.On("GetOrder", mock.Anything, fx.scope.Session, fx.identity, int64(42)).
			Return(nil, domainerrors.ErrOrderNotFound).Once()

		c, rec := fx.context(http.MethodGet, "/api/orders/42", "")
		c.SetParamNames("id")
		c.SetParamValues("42")

		require.NoError(t, fx.handler.GetOrder(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "ORDER_NOT_FOUND", decode(t, rec).Error.Code)
	})

	t.Run("server error is left to the error handler", func(t *testing.T) {
		fx := createTestOrderHandler(t)
		fx.orderUC.On("GetOrder", mock.Anything, fx.scope.Session, fx.identity, int64(42)).
			Return(nil, context.DeadlineExceeded).Once()

		c, _ := fx.context(http.MethodGet, "/api/orders/42", "")
		c.SetParamNames("id")
		c.SetParamValues("42")

		assert.ErrorIs(t, fx.handler.GetOrder(c), context.DeadlineExceeded)
	})
}
