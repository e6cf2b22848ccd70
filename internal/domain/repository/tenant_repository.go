// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/entity"
)

var (
	// ErrTenantNotFound is returned by the directory when no tenant owns the subdomain.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrPoolExhausted is returned when no connection could be leased within the
	// pool's acquisition timeout.
	ErrPoolExhausted = errors.New("tenant connection pool exhausted")

	// ErrTenantDirectoryUnavailable marks a failure to query the master store.
	ErrTenantDirectoryUnavailable = errors.New("tenant directory unavailable")

	// ErrTenantDatabaseUnavailable marks a failure to open a tenant's pool.
	ErrTenantDatabaseUnavailable = errors.New("tenant database unavailable")
)

// TenantDirectory looks tenants up in the shared master store.
type TenantDirectory interface {
	// FindBySubdomain returns the tenant registered for subdomain, or ErrTenantNotFound.
	// Any other error means the master store could not be queried.
	FindBySubdomain(ctx context.Context, subdomain string) (*entity.Tenant, error)
}

// TenantResolver maps a subdomain to the process-wide pool of its tenant.
type TenantResolver interface {
	// Resolve returns the cached pool for subdomain, creating it on first use.
	// It fails with ErrTenantNotFound, or with an error wrapping
	// ErrTenantDirectoryUnavailable or ErrTenantDatabaseUnavailable.
	Resolve(ctx context.Context, subdomain string) (TenantPool, error)
}

// TenantPool is the bounded set of connections to one tenant database.
type TenantPool interface {
	// Tenant returns the tenant this pool serves.
	Tenant() entity.Tenant

	// Acquire leases capacity for one request. It waits at most the pool's
	// acquisition timeout and then fails with ErrPoolExhausted. The returned
	// release function must be called exactly once.
	Acquire(ctx context.Context) (Session, func(), error)

	// Close releases every connection held by the pool.
	Close() error
}

// Session is the tenant-bound persistence handle given to one request. Every
// repository it hands out talks to the tenant database only.
type Session interface {
	RepositoryFactory
	TransactionManager
}
