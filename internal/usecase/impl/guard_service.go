// Package impl contains the implementation of the application's business logic.
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

const bearerPrefix = "Bearer "

// guardState is threaded through the guard steps; each step reads what the
// previous ones established.
type guardState struct {
	tenant        string
	session       repository.Session
	authorization string

	token  string
	claims *service.Claims
	user   *entity.User
}

// guardStep is one check of the authentication pipeline.
type guardStep func(ctx context.Context, state *guardState) error

// guardService implements the GuardUsecase interface.
type guardService struct {
	tokenService service.TokenService
	logger       *slog.Logger
	steps        []guardStep
}

// GuardServiceParams holds dependencies for GuardService, injected by Fx.
type GuardServiceParams struct {
	fx.In

	TokenService service.TokenService
	Logger       *slog.Logger
}

// NewGuardService is the constructor for guardService.
func NewGuardService(params GuardServiceParams) usecase.GuardUsecase {
	srv := &guardService{
		tokenService: params.TokenService,
		logger:       params.Logger,
	}
	srv.steps = []guardStep{
		requireBearer,
		srv.verifyToken,
		matchTenant,
		loadSubject,
	}

	return srv
}

func (srv *guardService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Authenticate runs every step in order and stops at the first failure.
func (srv *guardService) Authenticate(ctx context.Context, tenant string, session repository.Session, authorization string) (*entity.Identity, error) {
	state := &guardState{
		tenant:        tenant,
		session:       session,
		authorization: authorization,
	}

	for _, step := range srv.steps {
		if err := step(ctx, state); err != nil {
			srv.log(ctx).Debug("Authentication rejected", slog.Any("error", err))
			return nil, err
		}
	}

	return &entity.Identity{
		UserID: state.user.ID,
		Role:   state.user.Role,
		Tenant: tenant,
	}, nil
}

// requireBearer accepts exactly "Bearer <token>".
func requireBearer(_ context.Context, state *guardState) error {
	if state.authorization == "" {
		return domainerrors.ErrUnauthenticated
	}

	token, found := strings.CutPrefix(state.authorization, bearerPrefix)
	if !found || token == "" || strings.ContainsAny(token, " \t") {
		return domainerrors.ErrInvalidAuthFormat
	}

	state.token = token
	return nil
}

// verifyToken checks signature and expiry.
func (srv *guardService) verifyToken(_ context.Context, state *guardState) error {
	claims, err := srv.tokenService.ParseAccessToken(state.token)
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			return domainerrors.ErrTokenExpired
		}
		return domainerrors.ErrTokenInvalid
	}

	state.claims = claims
	return nil
}

// matchTenant rejects tokens issued by another tenant, however valid they are.
func matchTenant(_ context.Context, state *guardState) error {
	if state.claims.Tenant != state.tenant {
		return domainerrors.ErrTenantMismatch
	}
	return nil
}

// loadSubject re-reads the user so deleted accounts and role changes take effect immediately.
func loadSubject(ctx context.Context, state *guardState) error {
	user, err := state.session.UserRepo().FindByID(ctx, state.claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrUserNoLongerExists
		}
		return errors.Wrap(err, "failed to load token subject")
	}

	state.user = user
	return nil
}
