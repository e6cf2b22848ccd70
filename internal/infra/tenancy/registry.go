// Package tenancy owns the process-wide mapping from tenant subdomain to connection pool.
package tenancy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"storefront/config"
	"storefront/internal/domain/entity"
	"storefront/internal/domain/lifecycle"
	"storefront/internal/domain/repository"
	"storefront/internal/infra/metrics"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// PoolFactory opens the connection pool of one tenant.
type PoolFactory interface {
	Open(ctx context.Context, tenant entity.Tenant) (repository.TenantPool, error)
}

// Options tunes a Registry.
type Options struct {
	// NegativeTTL is how long an unknown subdomain is answered from memory. Zero disables it.
	NegativeTTL time.Duration
	// NegativeCacheSize caps the number of remembered unknown subdomains.
	NegativeCacheSize int64
	// OpenTimeout bounds one directory lookup plus pool construction.
	OpenTimeout time.Duration
}

// Registry lazily creates one pool per subdomain and keeps it for the process lifetime.
// Reads are lock-free; creation is serialized per subdomain.
type Registry struct {
	directory repository.TenantDirectory
	factory   PoolFactory
	logger    *slog.Logger
	metrics   *metrics.Metrics

	pools  sync.Map // subdomain -> repository.TenantPool
	group  singleflight.Group
	closed atomic.Bool

	negative    *ristretto.Cache[string, struct{}]
	negativeTTL time.Duration
	openTimeout time.Duration
}

// Params defines the dependencies of the fx-managed registry.
type Params struct {
	fx.In
	fx.Lifecycle

	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Directory repository.TenantDirectory
	Factory   PoolFactory
}

// New builds the registry and closes every pool when the application stops.
func New(params Params) (*Registry, error) {
	opts := Options{OpenTimeout: lifecycle.DefaultTimeout}
	if params.Config.Tenancy != nil {
		opts.NegativeTTL = params.Config.Tenancy.NegativeTTL
		opts.NegativeCacheSize = params.Config.Tenancy.NegativeCacheSize
	}

	registry, err := NewRegistry(params.Directory, params.Factory, opts, params.Logger, params.Metrics)
	if err != nil {
		return nil, err
	}

	params.Append(fx.Hook{
		OnStop: registry.Close,
	})

	return registry, nil
}

// NewRegistry builds a Registry without lifecycle wiring.
func NewRegistry(directory repository.TenantDirectory, factory PoolFactory, opts Options, logger *slog.Logger, m *metrics.Metrics) (*Registry, error) {
	r := &Registry{
		directory:   directory,
		factory:     factory,
		logger:      logger,
		metrics:     m,
		negativeTTL: opts.NegativeTTL,
		openTimeout: opts.OpenTimeout,
	}
	if r.openTimeout <= 0 {
		r.openTimeout = lifecycle.DefaultTimeout
	}

	if opts.NegativeTTL > 0 {
		size := opts.NegativeCacheSize
		if size <= 0 {
			size = 1000
		}
		cache, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
			NumCounters: size * 10, // ~10x expected items
			MaxCost:     size,
			BufferItems: 64,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create negative tenant cache")
		}
		r.negative = cache
	}

	return r, nil
}

// Resolve returns the pool of the tenant owning subdomain.
func (r *Registry) Resolve(ctx context.Context, subdomain string) (repository.TenantPool, error) {
	if pool, ok := r.pools.Load(subdomain); ok {
		r.metrics.Resolutions.WithLabelValues(metrics.ResolveHit).Inc()
		return pool.(repository.TenantPool), nil
	}

	if r.closed.Load() {
		return nil, errors.Wrap(repository.ErrTenantDatabaseUnavailable, "tenant registry is closed")
	}

	if r.knownMissing(subdomain) {
		r.metrics.Resolutions.WithLabelValues(metrics.ResolveNegativeHit).Inc()
		return nil, repository.ErrTenantNotFound
	}

	// The flight outlives any single caller, so it must not inherit cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(subdomain, func() (any, error) {
		return r.open(flightCtx, subdomain)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(repository.TenantPool), nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "tenant resolution cancelled")
	}
}

// open runs at most once at a time per subdomain.
func (r *Registry) open(ctx context.Context, subdomain string) (repository.TenantPool, error) {
	// An earlier flight for the same key may have finished between Load and DoChan.
	if pool, ok := r.pools.Load(subdomain); ok {
		r.metrics.Resolutions.WithLabelValues(metrics.ResolveHit).Inc()
		return pool.(repository.TenantPool), nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.openTimeout)
	defer cancel()

	tenant, err := r.directory.FindBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			r.rememberMissing(subdomain)
			r.metrics.Resolutions.WithLabelValues(metrics.ResolveNotFound).Inc()
			return nil, repository.ErrTenantNotFound
		}

		r.metrics.Resolutions.WithLabelValues(metrics.ResolveError).Inc()
		r.logger.ErrorContext(ctx, "Tenant directory lookup failed",
			slog.String("subdomain", subdomain),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %w", repository.ErrTenantDirectoryUnavailable, err)
	}

	pool, err := r.factory.Open(ctx, *tenant)
	if err != nil {
		r.metrics.PoolCreations.WithLabelValues("failure").Inc()
		r.metrics.Resolutions.WithLabelValues(metrics.ResolveError).Inc()
		r.logger.ErrorContext(ctx, "Tenant pool creation failed",
			slog.String("subdomain", subdomain),
			slog.String("database", tenant.Database),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %w", repository.ErrTenantDatabaseUnavailable, err)
	}

	r.pools.Store(subdomain, pool)

	// Close may have swept the map while the pool was being opened.
	if r.closed.Load() {
		if stored, loaded := r.pools.LoadAndDelete(subdomain); loaded {
			_ = stored.(repository.TenantPool).Close()
		}
		return nil, errors.Wrap(repository.ErrTenantDatabaseUnavailable, "tenant registry is closed")
	}

	r.metrics.PoolCreations.WithLabelValues("success").Inc()
	r.metrics.Resolutions.WithLabelValues(metrics.ResolveCreated).Inc()
	r.metrics.OpenPools.Inc()
	r.logger.InfoContext(ctx, "Tenant pool registered",
		slog.String("subdomain", subdomain),
		slog.String("database", tenant.Database),
	)

	return pool, nil
}

func (r *Registry) knownMissing(subdomain string) bool {
	if r.negative == nil {
		return false
	}
	_, found := r.negative.Get(subdomain)
	return found
}

func (r *Registry) rememberMissing(subdomain string) {
	if r.negative == nil {
		return
	}
	r.negative.SetWithTTL(subdomain, struct{}{}, 1, r.negativeTTL)
	// Sets are buffered; make the entry visible to the next lookup.
	r.negative.Wait()
}

// Close closes every pool created so far. Later Resolve calls fail.
func (r *Registry) Close(ctx context.Context) error {
	r.closed.Store(true)

	var err error
	closedCount := 0
	r.pools.Range(func(key, _ any) bool {
		if pool, loaded := r.pools.LoadAndDelete(key); loaded {
			if closeErr := pool.(repository.TenantPool).Close(); closeErr != nil {
				err = multierr.Append(err, errors.Wrapf(closeErr, "failed to close pool for %v", key))
			}
			closedCount++
			r.metrics.OpenPools.Dec()
		}
		return true
	})

	if r.negative != nil {
		r.negative.Close()
	}

	r.logger.InfoContext(ctx, "Tenant registry closed", slog.Int("pools", closedCount))

	return err
}
