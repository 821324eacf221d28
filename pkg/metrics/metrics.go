// Package metrics exposes Prometheus collectors for HTTP traffic and the
// booking and wallet flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "parkly"

// Metrics owns its registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	bookings         *prometheus.CounterVec
	cancellations    *prometheus.CounterVec
	walletMovements  *prometheus.CounterVec
	walletAmount     *prometheus.CounterVec
	ledgerDrift      prometheus.Counter
	sideEffectErrors *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "created_total",
			Help:      "Booking attempts by resulting status.",
		}, []string{"status"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "cancelled_total",
			Help:      "Booking cancellations split by grace period.",
		}, []string{"within_grace"}),
		walletMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "transactions_total",
			Help:      "Wallet ledger entries by type.",
		}, []string{"type"}),
		walletAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "amount_total",
			Help:      "Sum of wallet ledger amounts by type.",
		}, []string{"type"}),
		ledgerDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "ledger_drift_total",
			Help:      "Wallets whose cached balance disagreed with the ledger.",
		}),
		sideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Post-commit side effects that failed.",
		}, []string{"effect"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.bookings,
		m.cancellations,
		m.walletMovements,
		m.walletAmount,
		m.ledgerDrift,
		m.sideEffectErrors,
	)
	return m
}

// Registry is exposed for tests and for callers that add their own collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched route,
// so path parameters do not explode label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) BookingCreated(status string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(status).Inc()
}

func (m *Metrics) BookingCancelled(withinGrace bool) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(strconv.FormatBool(withinGrace)).Inc()
}

// WalletMovement counts one ledger entry; amount is the float view of a decimal
func (m *Metrics) WalletMovement(kind string, amount float64) {
	if m == nil {
		return
	}
	m.walletMovements.WithLabelValues(kind).Inc()
	m.walletAmount.WithLabelValues(kind).Add(amount)
}

func (m *Metrics) LedgerDrift() {
	if m == nil {
		return
	}
	m.ledgerDrift.Inc()
}

func (m *Metrics) SideEffectFailed(effect string) {
	if m == nil {
		return
	}
	m.sideEffectErrors.WithLabelValues(effect).Inc()
}
