package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

type ledgerMetrics struct {
	transactions *prometheus.CounterVec
	applyLatency *prometheus.HistogramVec
	height       prometheus.Gauge
}

type eventMetrics struct {
	emitted  *prometheus.CounterVec
	claims   *prometheus.CounterVec
	claimed  *prometheus.CounterVec
	streamed prometheus.Counter
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics

	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC method activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "claimchain",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "claimchain",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "claimchain",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "claimchain",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. The status code should be
// the HTTP status or JSON-RPC error code that was ultimately returned.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 || status < 0 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if outcome == "error" {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" or
// "duplicate" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// Ledger returns the metrics registry tracking transaction application.
func Ledger() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "claimchain",
				Subsystem: "ledger",
				Name:      "transactions_total",
				Help:      "Transactions applied segmented by type and outcome.",
			}, []string{"type", "outcome"}),
			applyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "claimchain",
				Subsystem: "ledger",
				Name:      "apply_duration_seconds",
				Help:      "Time spent applying and committing a transaction.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"type"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "claimchain",
				Subsystem: "ledger",
				Name:      "height",
				Help:      "Number of committed transactions.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.transactions,
			ledgerRegistry.applyLatency,
			ledgerRegistry.height,
		)
	})
	return ledgerRegistry
}

// RecordTransaction records a transaction outcome. reason should be a stable
// label such as "ok", "nonce" or "not_enabled".
func (m *ledgerMetrics) RecordTransaction(txType, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	if txType == "" {
		txType = "unknown"
	}
	if reason == "" {
		reason = "ok"
	}
	m.transactions.WithLabelValues(txType, reason).Inc()
	m.applyLatency.WithLabelValues(txType).Observe(duration.Seconds())
}

// SetHeight publishes the committed height.
func (m *ledgerMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

// Events returns the metrics registry tracking committed ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "claimchain",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Committed events segmented by type.",
			}, []string{"type"}),
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "claimchain",
				Subsystem: "events",
				Name:      "claims_total",
				Help:      "Successful claims segmented by asset.",
			}, []string{"asset"}),
			claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "claimchain",
				Subsystem: "events",
				Name:      "claimed_units_total",
				Help:      "Whole token units paid out by claims segmented by asset.",
			}, []string{"asset"}),
			streamed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "claimchain",
				Subsystem: "events",
				Name:      "streamed_total",
				Help:      "Events delivered to websocket subscribers.",
			}),
		}
		prometheus.MustRegister(
			eventRegistry.emitted,
			eventRegistry.claims,
			eventRegistry.claimed,
			eventRegistry.streamed,
		)
	})
	return eventRegistry
}

// RecordEvent increments the counter for the supplied event type.
func (m *eventMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.emitted.WithLabelValues(eventType).Inc()
}

// RecordClaim tracks a successful claim of amount whole units of asset.
func (m *eventMetrics) RecordClaim(asset string, amount uint64) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToUpper(asset))
	if normalized == "" {
		normalized = "UNKNOWN"
	}
	m.claims.WithLabelValues(normalized).Inc()
	m.claimed.WithLabelValues(normalized).Add(float64(amount))
}

// RecordStreamed counts an event pushed to a stream subscriber.
func (m *eventMetrics) RecordStreamed() {
	if m == nil {
		return
	}
	m.streamed.Inc()
}
