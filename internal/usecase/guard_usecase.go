package usecase

import (
	"context"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
)

// GuardUsecase authenticates a request against the tenant it was routed to.
type GuardUsecase interface {
	// Authenticate runs the ordered checks on the Authorization header value and
	// returns the caller's identity, or the AppError of the first failing check.
	Authenticate(ctx context.Context, tenant string, session repository.Session, authorization string) (*entity.Identity, error)
}
