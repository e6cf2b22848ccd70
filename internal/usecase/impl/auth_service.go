package impl

import (
	"context"
	"log/slog"
	"strings"

	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"
	"storefront/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	hasher       service.PasswordHasher
	tokenService service.TokenService
	logger       *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Logger       *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		logger:       params.Logger,
	}
}

func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a user in the session's tenant. Emails are stored lower-cased.
// Self-registration only creates plain users; admins are provisioned in the tenant database.
func (srv *authService) Register(ctx context.Context, session repository.Session, input *usecase.RegisterInput) (*entity.User, error) {
	if input.Role != "" && !input.Role.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("role must be user or admin")
	}
	if input.Role == entity.RoleAdmin {
		srv.log(ctx).Warn("Rejected admin self-registration", slog.String("email", normalizeEmail(input.Email)))
		return nil, domainerrors.ErrForbidden.WithDetails("admin accounts cannot be self-registered")
	}

	hash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password", slog.Any("error", err))
		return nil, domainerrors.ErrPasswordHashFailed.WrapMessage(err.Error())
	}

	user := &entity.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Role:         entity.RoleUser,
	}

	if err := session.UserRepo().Create(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	srv.log(ctx).Info("User registered", slog.Int64("userID", user.ID), slog.String("role", user.Role.String()))

	return user, nil
}

// Login verifies credentials and issues an access token bound to tenant.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (srv *authService) Login(ctx context.Context, session repository.Session, tenant string, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	user, err := session.UserRepo().FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "failed to find user by email")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Debug("Password mismatch", slog.Int64("userID", user.ID))
		return nil, domainerrors.ErrInvalidCredentials
	}

	token, err := srv.tokenService.IssueAccessToken(user, tenant)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	return &usecase.LoginOutput{
		AccessToken: token,
		ExpiresIn:   srv.tokenService.AccessTokenTTL(),
		User:        user,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
