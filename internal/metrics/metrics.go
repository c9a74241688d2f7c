package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Engine metrics
	signalsGenerated *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
	insufficientData prometheus.Counter
	upstreamFailures *prometheus.CounterVec
	batchDuration    prometheus.Histogram
	batchSymbols     *prometheus.CounterVec
	watchCycles      prometheus.Counter
	watchlistSymbols prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Engine metrics
	r.signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigma_signals_generated_total",
			Help: "Total number of freshly computed signals",
		},
		[]string{"signal", "timeframe"},
	)
	r.cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigma_cache_requests_total",
			Help: "Signal cache lookups by result",
		},
		[]string{"result"},
	)
	r.insufficientData = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sigma_insufficient_data_total",
			Help: "Signal requests skipped for lack of market data",
		},
	)
	r.upstreamFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigma_upstream_failures_total",
			Help: "Market data provider failures by stage",
		},
		[]string{"stage"},
	)
	r.batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sigma_batch_duration_seconds",
			Help:    "Batch signal generation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	r.batchSymbols = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigma_batch_symbols_total",
			Help: "Symbols processed in batches by outcome",
		},
		[]string{"status"},
	)
	r.watchCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sigma_watch_cycles_total",
			Help: "Total number of watchlist cycles completed",
		},
	)
	r.watchlistSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sigma_watchlist_symbols",
			Help: "Number of symbols in watchlist",
		},
	)

	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.cacheRequests)
	reg.MustRegister(r.insufficientData)
	reg.MustRegister(r.upstreamFailures)
	reg.MustRegister(r.batchDuration)
	reg.MustRegister(r.batchSymbols)
	reg.MustRegister(r.watchCycles)
	reg.MustRegister(r.watchlistSymbols)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSignal records a freshly computed signal.
func (r *Registry) RecordSignal(signal, timeframe string) {
	r.signalsGenerated.WithLabelValues(signal, timeframe).Inc()
}

// RecordCacheHit records a cache lookup that returned a live result.
func (r *Registry) RecordCacheHit() {
	r.cacheRequests.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a cache lookup that fell through to computation.
func (r *Registry) RecordCacheMiss() {
	r.cacheRequests.WithLabelValues("miss").Inc()
}

// RecordCacheError records a cache lookup or store that failed.
func (r *Registry) RecordCacheError() {
	r.cacheRequests.WithLabelValues("error").Inc()
}

// RecordInsufficientData records a request skipped for lack of data.
func (r *Registry) RecordInsufficientData() {
	r.insufficientData.Inc()
}

// RecordUpstreamFailure records a provider failure at stage.
func (r *Registry) RecordUpstreamFailure(stage string) {
	r.upstreamFailures.WithLabelValues(stage).Inc()
}

// RecordBatch records a batch run.
func (r *Registry) RecordBatch(succeeded, failed int, duration float64) {
	r.batchSymbols.WithLabelValues("ok").Add(float64(succeeded))
	r.batchSymbols.WithLabelValues("failed").Add(float64(failed))
	r.batchDuration.Observe(duration)
}

// RecordWatchCycle records a completed watchlist cycle.
func (r *Registry) RecordWatchCycle() {
	r.watchCycles.Inc()
}

// SetWatchlistSize sets the watchlist size.
func (r *Registry) SetWatchlistSize(size int) {
	r.watchlistSymbols.Set(float64(size))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
