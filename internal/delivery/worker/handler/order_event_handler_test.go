package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"
	"storefront/internal/infra/metrics"
	mockRepo "storefront/internal/mocks/repository"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func newTestHandler(t *testing.T) (*OrderEventHandler, *mockRepo.MockTenantResolver, *metrics.Metrics) {
	resolver := mockRepo.NewMockTenantResolver(t)
	m := metrics.New()
	return &OrderEventHandler{
		resolver: resolver,
		metrics:  m,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, resolver, m
}

func pushBody(t *testing.T, event any) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)

	var msg PubSubMessage
	msg.Message.Data = base64.StdEncoding.EncodeToString(data)
	msg.Message.MessageID = "m-1"
	msg.Message.Attributes = map[string]string{"event_type": "order.placed", "request_id": "req-9"}

	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func push(h *OrderEventHandler, body []byte, authorization string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/push", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	_ = h.HandlePush(e.NewContext(req, rec))
	return rec
}

func acmeEvent() *service.OrderPlacedEvent {
	return &service.OrderPlacedEvent{Tenant: "acme", OrderID: 7, UserID: 1, TotalAmount: "30.00"}
}

func poolWithOrder(t *testing.T, order *entity.Order, findErr error) *mockRepo.MockTenantPool {
	session := mockRepo.NewMockSession(t)
	session.Orders.On("FindByIDForUser", mock.Anything, int64(7), int64(1)).Return(order, findErr).Once()

	pool := mockRepo.NewMockTenantPool(t)
	pool.On("Acquire", mock.Anything).Return(session, func() {}, nil).Once()
	return pool
}

func TestOrderEventHandler_Confirmed(t *testing.T) {
	h, resolver, m := newTestHandler(t)
	resolver.On("Resolve", mock.Anything, "acme").
		Return(poolWithOrder(t, &entity.Order{ID: 7, UserID: 1, TotalAmount: decimal.RequireFromString("30")}, nil), nil).Once()

	rec := push(h, pushBody(t, acmeEvent()), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsConsumed.WithLabelValues(metrics.EventConfirmed)), 0)
}

func TestOrderEventHandler_Mismatch(t *testing.T) {
	h, resolver, m := newTestHandler(t)
	resolver.On("Resolve", mock.Anything, "acme").
		Return(poolWithOrder(t, &entity.Order{ID: 7, UserID: 1, TotalAmount: decimal.RequireFromString("29.99")}, nil), nil).Once()

	rec := push(h, pushBody(t, acmeEvent()), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsConsumed.WithLabelValues(metrics.EventMismatch)), 0)
}

func TestOrderEventHandler_OrphanIsAcknowledged(t *testing.T) {
	h, resolver, m := newTestHandler(t)
	resolver.On("Resolve", mock.Anything, "acme").
		Return(poolWithOrder(t, nil, repository.ErrOrderNotFound), nil).Once()

	rec := push(h, pushBody(t, acmeEvent()), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsConsumed.WithLabelValues(metrics.EventOrphaned)), 0)
}

func TestOrderEventHandler_TenantDatabaseDownIsRetried(t *testing.T) {
	h, resolver, m := newTestHandler(t)
	resolver.On("Resolve", mock.Anything, "acme").
		Return(nil, errors.Wrap(repository.ErrTenantDatabaseUnavailable, "dial")).Once()

	rec := push(h, pushBody(t, acmeEvent()), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsConsumed.WithLabelValues(metrics.EventRetried)), 0)
}

func TestOrderEventHandler_MalformedPayloadIsDropped(t *testing.T) {
	h, _, m := newTestHandler(t)

	rec := push(h, pushBody(t, map[string]any{"tenant": "", "order_id": 0}), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsConsumed.WithLabelValues(metrics.EventMalformed)), 0)
}

func TestOrderEventHandler_PushAuth(t *testing.T) {
	h, resolver, _ := newTestHandler(t)
	h.verifyPushAuth = true
	h.verifyToken = func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		if token != "good" {
			return nil, errors.New("bad token")
		}
		assert.Equal(t, "http://example.com/push", audience)
		return &idtoken.Payload{Issuer: "https://accounts.google.com", Claims: map[string]any{"email_verified": true}}, nil
	}

	rec := push(h, pushBody(t, acmeEvent()), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = push(h, pushBody(t, acmeEvent()), "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	resolver.On("Resolve", mock.Anything, "acme").
		Return(poolWithOrder(t, &entity.Order{ID: 7, UserID: 1, TotalAmount: decimal.RequireFromString("30")}, nil), nil).Once()
	rec = push(h, pushBody(t, acmeEvent()), "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderEventHandler_Audience(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		forwarded  string
		want       string
	}{
		{name: "plain http", want: "http://worker.example.com/push"},
		{name: "behind tls proxy", forwarded: "https", want: "https://worker.example.com/push"},
		{name: "proxy chain", forwarded: "HTTPS, http", want: "https://worker.example.com/push"},
		{name: "configured audience wins", configured: "https://push.example.com/push", forwarded: "http", want: "https://push.example.com/push"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestHandler(t)
			h.pushAudience = tt.configured

			req := httptest.NewRequest(http.MethodPost, "http://worker.example.com/push", nil)
			if tt.forwarded != "" {
				req.Header.Set(echo.HeaderXForwardedProto, tt.forwarded)
			}

			assert.Equal(t, tt.want, h.audience(req))
		})
	}
}
