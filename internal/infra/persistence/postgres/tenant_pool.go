package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"storefront/config"
	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/infra/metrics"
	"storefront/internal/infra/persistence/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// TenantPoolFactoryParams defines the dependencies of the tenant pool factory.
type TenantPoolFactoryParams struct {
	fx.In

	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// TenantPoolFactory opens one bounded connection pool per tenant database,
// using the shared tenant cluster settings and the database name from the directory.
type TenantPoolFactory struct {
	appConfig *config.Config
	dbConfig  *config.TenantDBConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewTenantPoolFactory is the constructor for TenantPoolFactory.
func NewTenantPoolFactory(params TenantPoolFactoryParams) (*TenantPoolFactory, error) {
	if params.Config.TenantDB == nil {
		return nil, errors.New("tenant database config is required")
	}

	return &TenantPoolFactory{
		appConfig: params.Config,
		dbConfig:  params.Config.TenantDB,
		logger:    params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Configured replicas are attached through dbresolver and serve product reads.
// Configured replicas are attached through dbresolver and serve plain reads.
func (f *TenantPoolFactory) Open(ctx context.Context, tenant entity.Tenant) (repository.TenantPool, error) {
	logger := f.logger.With(slog.String("tenant", tenant.Subdomain), slog.String("database", tenant.Database))

	db, err := openGorm(postgres.Open(BuildDSN(f.dbConfig.ConnectionConfig, tenant.Database, f.dbConfig.SSLMode)), logger, f.appConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", tenant.Database)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tenant sql.DB")
	}
	applyPoolConfig(sqlDB, f.dbConfig.Pool)

	closers := []*sql.DB{sqlDB}
	fail := func(cause error) (repository.TenantPool, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, cause
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fail(errors.Wrapf(err, "failed to ping database %s", tenant.Database))
	}

	if len(f.dbConfig.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(f.dbConfig.Replicas))
		for _, replica := range f.dbConfig.Replicas {
			replicaDB, err := openReplica(replica, tenant.Database, f.dbConfig.SSLMode)
			if err != nil {
				return fail(err)
			}
			applyPoolConfig(replicaDB, f.dbConfig.Pool)
			closers = append(closers, replicaDB)
			replicas = append(replicas, postgres.New(postgres.Config{Conn: replicaDB}))
		}

		if err := registerReplicas(db, replicas); err != nil {
			return fail(err)
		}
	}

	pool := newTenantPool(tenant, db, closers, f.dbConfig.Pool, f.metrics)
	pool.unregisterStats = f.metrics.RegisterDBStats(tenant.Database, sqlDB)

	monitorCtx, cancel := context.WithCancel(context.Background())
	pool.stopMonitor = cancel
	go monitorDBPool(monitorCtx, logger, sqlDB, dbPoolMonitorInterval)

	logger.InfoContext(ctx, "Tenant pool opened",
		slog.Int("maxOpenConns", f.dbConfig.Pool.MaxOpenConns),
		slog.Int("replicas", len(f.dbConfig.Replicas)),
	)

	return pool, nil
}

// registerReplicas routes catalog reads to the replicas. Users and orders stay
// on the primary so credential re-checks and fresh orders are never stale.
func registerReplicas(db *gorm.DB, replicas []gorm.Dialector) error {
	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}, &model.ProductModel{})

	return errors.Wrap(db.Use(resolver), "failed to register read replicas")
}

func openReplica(conn config.ConnectionConfig, database, sslMode string) (*sql.DB, error) {
	pgxConfig, err := pgx.ParseConfig(BuildDSN(conn, database, sslMode))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid replica config for %s", conn.Host)
	}

	return stdlib.OpenDB(*pgxConfig), nil
}

// tenantPool bounds the number of concurrent requests on one tenant database.
// The semaphore is sized to MaxOpenConns so a lease maps onto a connection.
type tenantPool struct {
	tenant         entity.Tenant
	db             *gorm.DB
	closers        []*sql.DB
	sem            *semaphore.Weighted
	acquireTimeout time.Duration
	metrics        *metrics.Metrics

	closed          atomic.Bool
	closeOnce       sync.Once
	stopMonitor     context.CancelFunc
	unregisterStats func()
}

func newTenantPool(tenant entity.Tenant, db *gorm.DB, closers []*sql.DB, poolCfg config.PoolConfig, m *metrics.Metrics) *tenantPool {
	size := int64(poolCfg.MaxOpenConns)
	if size <= 0 {
		size = 1
	}

	return &tenantPool{
		tenant:         tenant,
		db:             db,
		closers:        closers,
		sem:            semaphore.NewWeighted(size),
		acquireTimeout: poolCfg.AcquireTimeout,
		metrics:        m,
	}
}

// Tenant returns the tenant this pool serves.
func (p *tenantPool) Tenant() entity.Tenant {
	return p.tenant
}

// Acquire waits up to the configured timeout for a lease.
func (p *tenantPool) Acquire(ctx context.Context) (repository.Session, func(), error) {
	if p.closed.Load() {
		return nil, nil, errors.Wrapf(repository.ErrTenantDatabaseUnavailable, "pool for %s is closed", p.tenant.Subdomain)
	}

	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		// The caller gave up; that is not pool pressure.
		if ctx.Err() != nil {
			return nil, nil, errors.Wrap(ctx.Err(), "lease acquisition cancelled")
		}

		p.metrics.PoolExhaustions.WithLabelValues(p.tenant.Subdomain).Inc()

		return nil, nil, errors.Wrapf(repository.ErrPoolExhausted, "no lease for %s within %s", p.tenant.Subdomain, p.acquireTimeout)
	}
	p.metrics.PoolAcquireWait.Observe(time.Since(start).Seconds())

	var once sync.Once
	release := func() {
		once.Do(func() { p.sem.Release(1) })
	}

	return NewSession(p.db), release, nil
}

// Close closes the primary and replica connections. It is safe to call more than once.
func (p *tenantPool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		if p.stopMonitor != nil {
			p.stopMonitor()
		}
		if p.unregisterStats != nil {
			p.unregisterStats()
		}
		for _, c := range p.closers {
			err = multierr.Append(err, c.Close())
		}
	})

	return err
}
