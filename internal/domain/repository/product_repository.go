package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/entity"
)

var (
	// ErrProductNotFound is returned when the product row does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrStockConflict is returned by DecrementStock when the guarded update
	// matched no row, i.e. stock dropped below the requested quantity.
	ErrStockConflict = errors.New("stock lower than requested quantity")
)

// ProductRepository defines catalog persistence.
type ProductRepository interface {
	// List returns every product ordered by id.
	List(ctx context.Context) ([]*entity.Product, error)

	// Create persists a new product and fills in its generated id.
	Create(ctx context.Context, product *entity.Product) error

	// FindForUpdate reads a product and locks its row until the surrounding
	// transaction ends. Outside a transaction it degrades to a plain read.
	FindForUpdate(ctx context.Context, id int64) (*entity.Product, error)

	// DecrementStock subtracts quantity only if the current stock covers it.
	DecrementStock(ctx context.Context, id int64, quantity int) error
}
