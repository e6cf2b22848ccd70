package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/entity"
)

// ErrOrderNotFound is returned when no order matches both id and owner.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository defines order persistence.
type OrderRepository interface {
	// Create inserts the order header and fills in its generated id.
	Create(ctx context.Context, order *entity.Order) error

	// AddItem inserts one line item of an existing order.
	AddItem(ctx context.Context, item *entity.OrderItem) error

	// ListByUser returns the user's orders, newest first, without items.
	ListByUser(ctx context.Context, userID int64) ([]*entity.Order, error)

	// FindByIDForUser returns the order with its items only when it belongs to userID.
	FindByIDForUser(ctx context.Context, id, userID int64) (*entity.Order, error)
}
