package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPCollector exposes Prometheus metrics for inbound HTTP requests.
type HTTPCollector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

// NewHTTPCollector constructs a collector with default histograms/counters.
func NewHTTPCollector() (*HTTPCollector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loopin",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loopin",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	if err := registry.Register(requestDuration); err != nil {
		return nil, err
	}

	if err := registry.Register(requestTotal); err != nil {
		return nil, err
	}

	collector := &HTTPCollector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}

	return collector, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *HTTPCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *HTTPCollector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// ArchiveMetrics tracks archival runs on the same registry as the HTTP
// metrics so everything shows up under one /metrics endpoint.
type ArchiveMetrics struct {
	runsTotal      *prometheus.CounterVec
	eventsArchived prometheus.Counter
	eventsDeleted  prometheus.Counter
	runDuration    prometheus.Histogram
}

// NewArchiveMetrics registers archival run metrics with the collector.
func (c *HTTPCollector) NewArchiveMetrics() (*ArchiveMetrics, error) {
	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loopin",
		Subsystem: "archive",
		Name:      "runs_total",
		Help:      "Total number of archival runs by outcome.",
	}, []string{"status"})

	eventsArchived := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "loopin",
		Subsystem: "archive",
		Name:      "events_archived_total",
		Help:      "Total number of event snapshots written to the archive.",
	})

	eventsDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "loopin",
		Subsystem: "archive",
		Name:      "events_deleted_total",
		Help:      "Total number of live events deleted after archival.",
	})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "loopin",
		Subsystem: "archive",
		Name:      "run_duration_seconds",
		Help:      "Duration of archival runs.",
		Buckets:   prometheus.DefBuckets,
	})

	for _, collector := range []prometheus.Collector{runsTotal, eventsArchived, eventsDeleted, runDuration} {
		if err := c.registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return &ArchiveMetrics{
		runsTotal:      runsTotal,
		eventsArchived: eventsArchived,
		eventsDeleted:  eventsDeleted,
		runDuration:    runDuration,
	}, nil
}

// ObserveRun records one archival run.
func (m *ArchiveMetrics) ObserveRun(archived, deleted int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.runsTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.eventsArchived.Add(float64(archived))
		m.eventsDeleted.Add(float64(deleted))
		m.runDuration.Observe(duration.Seconds())
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
