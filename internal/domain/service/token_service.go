package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/domain/entity"
)

var (
	// ErrTokenExpired means the token was well-formed and signed but is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid covers bad signatures, malformed tokens and missing claims.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims defines the custom claims carried by access tokens.
type Claims struct {
	UserID int64       `json:"id"`
	Email  string      `json:"email"`
	Role   entity.Role `json:"role"`
	Tenant string      `json:"tenant"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies access tokens.
type TokenService interface {
	// IssueAccessToken signs a token for user, bound to the given tenant subdomain.
	IssueAccessToken(user *entity.User, tenant string) (string, error)

	// ParseAccessToken verifies signature and expiry. It returns ErrTokenExpired or
	// ErrTokenInvalid (possibly wrapped) on failure.
	ParseAccessToken(tokenString string) (*Claims, error)

	// AccessTokenTTL is the lifetime of issued access tokens.
	AccessTokenTTL() time.Duration
}
