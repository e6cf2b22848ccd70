package usecase

import (
	"context"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
)

// PlaceOrderInput lists the requested products in the order they were sent.
type PlaceOrderInput struct {
	Items []entity.OrderLine
}

// OrderUsecase defines order placement and order history.
type OrderUsecase interface {
	// PlaceOrder validates stock, prices the lines and persists the order in one transaction.
	PlaceOrder(ctx context.Context, session repository.Session, identity *entity.Identity, input *PlaceOrderInput) (*entity.Order, error)

	// ListOrders returns the caller's orders, newest first.
	ListOrders(ctx context.Context, session repository.Session, identity *entity.Identity) ([]*entity.Order, error)

	// GetOrder returns one of the caller's orders with its items.
	GetOrder(ctx context.Context, session repository.Session, identity *entity.Identity, orderID int64) (*entity.Order, error)
}
