// Package handler contains the Pub/Sub push handlers of the worker.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"storefront/config"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/constants"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"
	"storefront/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		OrderingKey string            `json:"orderingKey,omitempty"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func newRetryableError(err error) error {
	return &retryableError{err: err}
}

func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// TokenVerifier validates the OIDC token Pub/Sub attaches to push requests.
type TokenVerifier func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// OrderEventHandler confirms order.placed events against the tenant database
// they name. Unknown orders and total mismatches are logged and acknowledged;
// infrastructure failures are answered with 503 so Pub/Sub redelivers.
type OrderEventHandler struct {
	verifyPushAuth bool
	verifyToken    TokenVerifier
	pushAudience   string
	resolver       repository.TenantResolver
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// OrderEventHandlerParams holds dependencies for the OrderEventHandler
type OrderEventHandlerParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	Resolver repository.TenantResolver
	Metrics  *metrics.Metrics
}

// NewOrderEventHandler creates a new Pub/Sub push handler
func NewOrderEventHandler(params OrderEventHandlerParams) *OrderEventHandler {
	verifyPushAuth := params.Config.PubSub != nil &&
		params.Config.PubSub.Provider == constants.PubSubProviderGoogle &&
		params.Config.Env.Env != constants.EnvLocal

	var pushAudience string
	if params.Config.PubSub != nil {
		pushAudience = params.Config.PubSub.PushAudience
	}

	return &OrderEventHandler{
		verifyPushAuth: verifyPushAuth,
		verifyToken:    idtoken.Validate,
		pushAudience:   pushAudience,
		resolver:       params.Resolver,
		metrics:        params.Metrics,
		logger:         params.Logger,
	}
}

// HandlePush handles incoming order.placed push messages
func (h *OrderEventHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := h.verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))
		h.observe(metrics.EventMalformed)

		return c.NoContent(http.StatusBadRequest)
	}

	event, err := decodeOrderPlaced(&pushMsg)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode order event",
			slog.String("message_id", pushMsg.Message.MessageID),
			slog.Any("error", err),
		)
		h.observe(metrics.EventMalformed)

		// Redelivery cannot fix a malformed payload.
		return c.NoContent(http.StatusOK)
	}

	requestID := extractRequestID(ctx, &pushMsg, event)
	reqLogger := h.logger.With(
		slog.String("request_id", requestID),
		slog.String("tenant", event.Tenant),
		slog.Int64("order_id", event.OrderID),
	)
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	result, err := h.confirmOrder(ctx, event)
	if err != nil {
		reqLogger.Error("[Worker] Failed to process order event",
			slog.Any("error", err),
			slog.Bool("retryable", isRetryableError(err)),
		)
		if isRetryableError(err) {
			h.observe(metrics.EventRetried)
			return c.NoContent(http.StatusServiceUnavailable)
		}
	}

	h.observe(result)
	reqLogger.Info("[Worker] Order event processed", slog.String("result", result))

	return c.NoContent(http.StatusOK)
}

func decodeOrderPlaced(pushMsg *PubSubMessage) (*service.OrderPlacedEvent, error) {
	if eventType := pushMsg.Message.Attributes["event_type"]; eventType != "" && eventType != constants.EventTypeOrderPlaced {
		return nil, errors.Errorf("unexpected event type %q", eventType)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode message data")
	}

	var event service.OrderPlacedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, errors.Wrap(err, "failed to parse order event")
	}

	if event.Tenant == "" || event.OrderID <= 0 || event.UserID <= 0 {
		return nil, errors.New("order event is missing tenant, order or user")
	}

	return &event, nil
}

// confirmOrder looks the order up in its tenant database and compares totals.
func (h *OrderEventHandler) confirmOrder(ctx context.Context, event *service.OrderPlacedEvent) (string, error) {
	pool, err := h.resolver.Resolve(ctx, event.Tenant)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return metrics.EventOrphaned, errors.Wrap(err, "tenant of order event is unknown")
		}
		return "", newRetryableError(err)
	}

	session, release, err := pool.Acquire(ctx)
	if err != nil {
		return "", newRetryableError(err)
	}
	defer release()

	order, err := session.OrderRepo().FindByIDForUser(ctx, event.OrderID, event.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return metrics.EventOrphaned, errors.Wrap(err, "order of event not found")
		}
		return "", newRetryableError(err)
	}

	eventTotal, err := decimal.NewFromString(event.TotalAmount)
	if err != nil || !eventTotal.Equal(order.TotalAmount) {
		deliverycontext.GetLoggerOrDefault(ctx, h.logger).Warn("[Worker] Order total differs from event",
			slog.String("event_total", event.TotalAmount),
			slog.String("stored_total", order.TotalAmount.StringFixed(2)),
		)
		return metrics.EventMismatch, nil
	}

	return metrics.EventConfirmed, nil
}

func (h *OrderEventHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.EventsConsumed.WithLabelValues(result).Inc()
	}
}

// extractRequestID prefers message attributes, then the event body, then the
// X-Request-Id header of the push request.
func extractRequestID(ctx context.Context, pushMsg *PubSubMessage, event *service.OrderPlacedEvent) string {
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}

	if event.RequestID != "" {
		return event.RequestID
	}

	return deliverycontext.GetRequestIDFromContext(ctx)
}

// audience returns the configured push audience, or the URL of this endpoint
// as the client saw it, honouring X-Forwarded-Proto from a TLS-terminating proxy.
func (h *OrderEventHandler) audience(req *http.Request) string {
	if h.pushAudience != "" {
		return h.pushAudience
	}

	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	if proto, _, _ := strings.Cut(req.Header.Get(echo.HeaderXForwardedProto), ","); strings.TrimSpace(proto) != "" {
		scheme = strings.ToLower(strings.TrimSpace(proto))
	}

	return fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func (h *OrderEventHandler) verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	payload, err := h.verifyToken(req.Context(), token, h.audience(req))
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
