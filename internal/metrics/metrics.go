package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shop"

// Shortfall severities
const (
	ShortfallAdvisory = "advisory"
	ShortfallCritical = "critical"
)

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry   prometheus.Gatherer
	checkout   *prometheus.CounterVec
	shortfalls *prometheus.CounterVec
	outbox     *prometheus.CounterVec
	requests   *prometheus.CounterVec
	latencyMS  *prometheus.HistogramVec
}

// New registers the collectors on reg. Passing a fresh *prometheus.Registry
// keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		checkout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "operations_total",
			Help:      "Checkout operations by outcome.",
		}, []string{"operation", "outcome"}),
		shortfalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "stock_shortfalls_total",
			Help:      "Requests that found less stock than asked for.",
		}, []string{"severity"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox events handed to the broker, by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		latencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
	}

	reg.MustRegister(m.checkout, m.shortfalls, m.outbox, m.requests, m.latencyMS)
	return m
}

// CheckoutOutcome counts one checkout operation.
func (m *Metrics) CheckoutOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.checkout.WithLabelValues(operation, outcome).Inc()
}

// StockShortfall counts an advisory (cart-time) or critical (confirm-time)
// shortage.
func (m *Metrics) StockShortfall(severity string) {
	if m == nil {
		return
	}
	m.shortfalls.WithLabelValues(severity).Inc()
}

// OutboxEvents counts relayed events; outcome is "published" or "failed".
func (m *Metrics) OutboxEvents(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.outbox.WithLabelValues(outcome).Add(float64(n))
}

// Middleware records request counts and latency keyed by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.latencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
