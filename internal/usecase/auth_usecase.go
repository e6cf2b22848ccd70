// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks. Every operation receives
// the tenant session of the current request explicitly.
package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new user in a tenant.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     entity.Role // Optional; only entity.RoleUser may self-register.
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// --- Output DTOs ---

// LoginOutput returns the generated token after a successful login.
type LoginOutput struct {
	AccessToken string
	ExpiresIn   time.Duration
	User        *entity.User
}

// AuthUsecase defines registration and login inside one tenant.
type AuthUsecase interface {
	Register(ctx context.Context, session repository.Session, input *RegisterInput) (*entity.User, error)
	Login(ctx context.Context, session repository.Session, tenant string, input *LoginInput) (*LoginOutput, error)
}
