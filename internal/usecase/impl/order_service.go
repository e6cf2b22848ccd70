package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"
	"storefront/internal/infra/metrics"
	"storefront/internal/usecase"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

const publishTimeout = 5 * time.Second

// orderService implements the OrderUsecase interface.
type orderService struct {
	publisher service.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// publishes tracks event deliveries still running after their request returned.
	publishes sync.WaitGroup
}

// OrderServiceParams holds dependencies for OrderService, injected by Fx.
type OrderServiceParams struct {
	fx.In

	Lc        fx.Lifecycle `optional:"true"`
	Publisher service.EventPublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// NewOrderService is the constructor for orderService.
func NewOrderService(params OrderServiceParams) usecase.OrderUsecase {
	srv := &orderService{
		publisher: params.Publisher,
		metrics:   params.Metrics,
		logger:    params.Logger,
	}

	if params.Lc != nil {
		params.Lc.Append(fx.Hook{OnStop: srv.waitPublishes})
	}

	return srv
}

func (srv *orderService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// PlaceOrder runs the whole purchase in one transaction: lock and check every
// product, insert the header with the derived total, then insert the lines and
// decrement stock with a guarded update. Any failure rolls everything back.
func (srv *orderService) PlaceOrder(ctx context.Context, session repository.Session, identity *entity.Identity, input *usecase.PlaceOrderInput) (*entity.Order, error) {
	if err := validateOrderLines(input.Items); err != nil {
		srv.observeOrder(identity.Tenant, err)
		return nil, err
	}

	var placed *entity.Order
	err := session.Execute(ctx, func(txRepoFactory repository.RepositoryFactory) error {
		order, err := placeOrderTx(ctx, txRepoFactory, identity.UserID, input.Items)
		if err != nil {
			return err
		}
		placed = order
		return nil
	})
	srv.observeOrder(identity.Tenant, err)
	if err != nil {
		srv.log(ctx).Warn("Order placement failed", slog.Int64("userID", identity.UserID), slog.Any("error", err))
		return nil, errors.Wrap(err, "failed to place order")
	}

	srv.log(ctx).Info("Order placed",
		slog.Int64("orderID", placed.ID),
		slog.Int64("userID", identity.UserID),
		slog.String("total", placed.TotalAmount.StringFixed(2)),
	)

	srv.publishOrderPlaced(ctx, identity.Tenant, placed)

	return placed, nil
}

func validateOrderLines(lines []entity.OrderLine) error {
	if len(lines) == 0 {
		return domainerrors.ErrEmptyOrder
	}

	for _, line := range lines {
		if line.ProductID <= 0 {
			return domainerrors.ErrValidationFailed.WithDetails("product_id must be a positive integer")
		}
		if line.Quantity <= 0 {
			return domainerrors.ErrValidationFailed.WithDetails("quantity must be a positive integer")
		}
	}

	return nil
}

func placeOrderTx(ctx context.Context, repos repository.RepositoryFactory, userID int64, lines []entity.OrderLine) (*entity.Order, error) {
	productRepo := repos.ProductRepo()
	orderRepo := repos.OrderRepo()

	// Remaining stock per product, so repeated ids are checked against their combined quantity.
	remaining := make(map[int64]int, len(lines))
	total := decimal.Zero

	for _, line := range lines {
		product, err := lockProduct(ctx, productRepo, line.ProductID)
		if err != nil {
			return nil, err
		}

		left, seen := remaining[product.ID]
		if !seen {
			left = product.Stock
		}
		if left < line.Quantity {
			return nil, domainerrors.ErrInsufficientStock.WithDetails(product.Name)
		}
		remaining[product.ID] = left - line.Quantity

		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	order := &entity.Order{
		UserID:      userID,
		TotalAmount: total,
	}
	if err := orderRepo.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}

	order.Items = make([]entity.OrderItem, 0, len(lines))
	for _, line := range lines {
		product, err := lockProduct(ctx, productRepo, line.ProductID)
		if err != nil {
			return nil, err
		}

		item := entity.OrderItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  line.Quantity,
			Price:     product.Price,
		}
		if err := orderRepo.AddItem(ctx, &item); err != nil {
			return nil, errors.Wrap(err, "failed to add order item")
		}

		if err := productRepo.DecrementStock(ctx, product.ID, line.Quantity); err != nil {
			if errors.Is(err, repository.ErrStockConflict) {
				return nil, domainerrors.ErrInsufficientStock.WithDetails(product.Name)
			}
			return nil, errors.Wrap(err, "failed to decrement stock")
		}

		order.Items = append(order.Items, item)
	}

	return order, nil
}

func lockProduct(ctx context.Context, productRepo repository.ProductRepository, id int64) (*entity.Product, error) {
	product, err := productRepo.FindForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domainerrors.ErrProductNotFound.WrapMessage("product id not found")
		}
		return nil, errors.Wrap(err, "failed to lock product")
	}

	return product, nil
}

func (srv *orderService) observeOrder(tenant string, err error) {
	if srv.metrics == nil {
		return
	}

	result := metrics.OrderPlaced
	if err != nil {
		result = metrics.OrderFailed
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) && !domainerrors.IsServerError(appErr) {
			result = metrics.OrderRejected
		}
	}

	srv.metrics.OrdersTotal.WithLabelValues(tenant, result).Inc()
}

// publishOrderPlaced is best effort: the order is already committed. Delivery
// runs in the background so a slow broker never holds the caller's tenant lease.
func (srv *orderService) publishOrderPlaced(ctx context.Context, tenant string, order *entity.Order) {
	if srv.publisher == nil {
		return
	}

	event := &service.OrderPlacedEvent{
		RequestID:   deliverycontext.GetRequestIDFromContext(ctx),
		Tenant:      tenant,
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Items:       make([]service.OrderPlacedItem, 0, len(order.Items)),
		PlacedAt:    order.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, service.OrderPlacedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
		})
	}

	detached := context.WithoutCancel(ctx)
	logger := srv.log(ctx)

	srv.publishes.Go(func() {
		pubCtx, cancel := context.WithTimeout(detached, publishTimeout)
		defer cancel()

		if err := srv.publisher.PublishOrderPlaced(pubCtx, event); err != nil {
			logger.Error("Failed to publish order event", slog.Int64("orderID", event.OrderID), slog.Any("error", err))
			if srv.metrics != nil {
				srv.metrics.EventPublishFail.Inc()
			}
		}
	})
}

// waitPublishes blocks until background deliveries finish or ctx expires.
func (srv *orderService) waitPublishes(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		srv.publishes.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "order events still publishing")
	}
}

// ListOrders returns the caller's orders, newest first.
func (srv *orderService) ListOrders(ctx context.Context, session repository.Session, identity *entity.Identity) ([]*entity.Order, error) {
	orders, err := session.OrderRepo().ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	return orders, nil
}

// GetOrder returns the order only when the caller owns it.
func (srv *orderService) GetOrder(ctx context.Context, session repository.Session, identity *entity.Identity, orderID int64) (*entity.Order, error) {
	order, err := session.OrderRepo().FindByIDForUser(ctx, orderID, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domainerrors.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "failed to get order")
	}

	return order, nil
}
