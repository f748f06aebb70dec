package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	uploadsTotal     *prometheus.CounterVec
	uploadImages     prometheus.Histogram
	actionsTotal     *prometheus.CounterVec
	exportsTotal     prometheus.Counter
	exportBytes      prometheus.Histogram
	suggestionsTotal *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nocap",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nocap",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nocap",
				Subsystem: "review",
				Name:      "uploads_total",
				Help:      "Archive uploads by outcome (new, repeat, rejected).",
			},
			[]string{"outcome"},
		),
		uploadImages: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nocap",
				Subsystem: "review",
				Name:      "upload_images",
				Help:      "Number of images detected per accepted upload.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nocap",
				Subsystem: "review",
				Name:      "actions_total",
				Help:      "Review actions applied by kind.",
			},
			[]string{"action"},
		),
		exportsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nocap",
				Subsystem: "review",
				Name:      "exports_total",
				Help:      "Caption archives downloaded.",
			},
		),
		exportBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nocap",
				Subsystem: "review",
				Name:      "export_bytes",
				Help:      "Size of generated caption archives.",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		suggestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nocap",
				Subsystem: "captioning",
				Name:      "suggestions_total",
				Help:      "Caption suggestions requested by provider and status.",
			},
			[]string{"provider", "status"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nocap",
				Subsystem: "review",
				Name:      "sessions",
				Help:      "Browser sessions held in memory.",
			},
		),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.uploadsTotal,
		m.uploadImages,
		m.actionsTotal,
		m.exportsTotal,
		m.exportBytes,
		m.suggestionsTotal,
		m.activeSessions,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		path := r.URL.Path
		if r.Pattern != "" {
			path = r.Pattern
		}
		m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) RecordUpload(outcome string, images int) {
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	if outcome == "new" {
		m.uploadImages.Observe(float64(images))
	}
}

func (m *Metrics) RecordAction(action string) {
	m.actionsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordExport(size int) {
	m.exportsTotal.Inc()
	m.exportBytes.Observe(float64(size))
}

func (m *Metrics) RecordSuggestion(provider string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	if provider == "" {
		provider = "unknown"
	}
	m.suggestionsTotal.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) SetSessions(n int) {
	m.activeSessions.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
