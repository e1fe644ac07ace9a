// Package telemetry exposes Prometheus metrics for the clinic server: HTTP
// request counts and latency, record mutations per entity, in-memory record
// counts and notification deliveries.
package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mutation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics owns a private registry. All methods are no-ops on a nil receiver
// so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	inFlight   prometheus.Gauge
	mutations  *prometheus.CounterVec
	records    *prometheus.GaugeVec
	deliveries *prometheus.CounterVec
}

// New registers the clinic collectors under the given namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "clinic"
	}
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   defaultDurationBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_mutations_total",
			Help:      "Record mutations by entity, operation and outcome.",
		}, []string{"entity", "operation", "outcome"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records held in memory per entity.",
		}, []string{"entity"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "Notification block deliveries by channel and status.",
		}, []string{"channel", "status"}),
	}
	reg.MustRegister(
		m.requests, m.latency, m.inFlight, m.mutations, m.records, m.deliveries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Outcome classifies err for RecordMutation. notFound is matched with
// errors.Is.
func Outcome(err, notFound error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case notFound != nil && errors.Is(err, notFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// RecordMutation counts one create/update/delete against entity.
func (m *Metrics) RecordMutation(entity, operation, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(entity, operation, outcome).Inc()
}

// SetRecordCount publishes the in-memory size of an entity collection.
func (m *Metrics) SetRecordCount(entity string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(entity).Set(float64(n))
}

// RecordDelivery counts one notification delivery attempt.
func (m *Metrics) RecordDelivery(channel, status string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel, status).Inc()
}

// Middleware records request count, latency and in-flight requests using the
// route pattern rather than the raw path.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			m.inFlight.Inc()
			start := time.Now()

			err := next(c)

			m.inFlight.Dec()
			req := c.Request()
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			m.requests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
			m.latency.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
