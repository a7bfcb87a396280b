package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry. A nil *Metrics
// records nothing.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	apiInflight  prometheus.Gauge
	planningOps  *prometheus.CounterVec
	unplaced     prometheus.Counter
	cacheLookups *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "degreeplan_api_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "degreeplan_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "degreeplan_api_inflight_requests",
			Help: "HTTP requests currently being served",
		}),
		planningOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "degreeplan_planning_operations_total",
			Help: "Planning operations by name and error code",
		}, []string{"op", "code"}),
		unplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "degreeplan_unplaced_entries_total",
			Help: "Entries returned as unplaced by placement",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "degreeplan_aggregate_cache_lookups_total",
			Help: "Aggregate cache lookups by result",
		}, []string{"result"}),
	}
	m.reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.planningOps, m.unplaced, m.cacheLookups,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObservePlanningOp counts one planning operation; code is "" on success.
func (m *Metrics) ObservePlanningOp(op, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "ok"
	}
	m.planningOps.WithLabelValues(op, code).Inc()
}

func (m *Metrics) AddUnplaced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unplaced.Add(float64(n))
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
