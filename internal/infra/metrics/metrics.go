// Package metrics exposes the Prometheus collectors shared by the tenancy layer and the order flow.
package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Resolution results recorded by the tenant registry.
const (
	ResolveHit         = "hit"
	ResolveCreated     = "created"
	ResolveNotFound    = "not_found"
	ResolveNegativeHit = "negative_hit"
	ResolveError       = "error"
)

// Order results recorded by the order usecase.
const (
	OrderPlaced   = "placed"
	OrderRejected = "rejected"
	OrderFailed   = "failed"
)

// Event consumption results recorded by the order event worker.
const (
	EventConfirmed = "confirmed"
	EventMismatch  = "mismatch"
	EventOrphaned  = "orphaned"
	EventMalformed = "malformed"
	EventRetried   = "retried"
)

// Metrics owns a dedicated registry so tests can build as many instances as they need.
type Metrics struct {
	registry *prometheus.Registry

	OpenPools        prometheus.Gauge
	PoolCreations    *prometheus.CounterVec
	Resolutions      *prometheus.CounterVec
	PoolAcquireWait  prometheus.Histogram
	PoolExhaustions  *prometheus.CounterVec
	OrdersTotal      *prometheus.CounterVec
	EventPublishFail prometheus.Counter
	EventsConsumed   *prometheus.CounterVec
}

// New builds the collectors and registers them together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OpenPools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "open_pools",
			Help:      "Number of tenant connection pools currently open.",
		}),
		PoolCreations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "pool_creations_total",
			Help:      "Tenant pool constructions by outcome.",
		}, []string{"result"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "resolutions_total",
			Help:      "Tenant resolutions by outcome.",
		}, []string{"result"}),
		PoolAcquireWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "pool_acquire_wait_seconds",
			Help:      "Time spent waiting for a tenant connection lease.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		PoolExhaustions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "pool_exhausted_total",
			Help:      "Lease acquisitions that timed out, per tenant.",
		}, []string{"tenant"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "total",
			Help:      "Order placement attempts by tenant and outcome.",
		}, []string{"tenant", "result"}),
		EventPublishFail: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "event_publish_failures_total",
			Help:      "order.placed events that could not be published.",
		}),
		EventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "events_consumed_total",
			Help:      "order.placed push deliveries handled by the worker, by outcome.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.OpenPools,
		m.PoolCreations,
		m.Resolutions,
		m.PoolAcquireWait,
		m.PoolExhaustions,
		m.OrdersTotal,
		m.EventPublishFail,
		m.EventsConsumed,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterDBStats exports database/sql pool statistics for one tenant database.
// The returned func unregisters the collector.
func (m *Metrics) RegisterDBStats(dbName string, db *sql.DB) func() {
	collector := collectors.NewDBStatsCollector(db, dbName)
	if err := m.registry.Register(collector); err != nil {
		return func() {}
	}

	return func() { m.registry.Unregister(collector) }
}
