package usecase

import (
	"context"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"

	"github.com/shopspring/decimal"
)

// CreateProductInput defines a new catalog entry.
type CreateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  *int64
}

// ProductUsecase defines catalog operations.
type ProductUsecase interface {
	ListProducts(ctx context.Context, session repository.Session) ([]*entity.Product, error)
	CreateProduct(ctx context.Context, session repository.Session, input *CreateProductInput) (*entity.Product, error)
}
