// Package metrics exposes diagnosis and HTTP counters in the Prometheus
// exposition format. A nil *Metrics is valid and records nothing, which is
// how the server runs with metrics disabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crimson-sun/leafdoc/internal/model"
)

const namespace = "leafdoc"

// Metrics owns a private registry so tests and embedders never collide
// with the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	diagnoses     *prometheus.CounterVec
	lowConfidence prometheus.Counter
	unknownLabel  prometheus.Counter
	inference     prometheus.Histogram
	rejected      *prometheus.CounterVec
	requests      *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnoses_total",
			Help:      "Completed diagnoses by predicted label and health status.",
		}, []string{"label", "status"}),
		lowConfidence: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_confidence_total",
			Help:      "Diagnoses whose confidence fell below the threshold.",
		}),
		unknownLabel: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_label_total",
			Help:      "Predictions that resolved to the Unknown record.",
		}),
		inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent classifying one image.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_uploads_total",
			Help:      "Uploads rejected before classification.",
		}, []string{"reason"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.diagnoses, m.lowConfidence, m.unknownLabel,
		m.inference, m.rejected, m.requests,
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

// Handler serves the registry. With a nil receiver it responds 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDiagnosis records one completed diagnosis and its inference time.
func (m *Metrics) ObserveDiagnosis(d model.Diagnosis, took time.Duration) {
	if m == nil {
		return
	}
	label := d.Label
	if label == "" {
		label = "unknown"
	}
	m.diagnoses.WithLabelValues(label, string(d.Record.Status)).Inc()
	if d.LowConfidence {
		m.lowConfidence.Inc()
	}
	if d.Record.Status == model.StatusUnknown {
		m.unknownLabel.Inc()
	}
	m.inference.Observe(took.Seconds())
}

// RejectedUpload counts an upload refused for reason (e.g. "decode", "too_large").
func (m *Metrics) RejectedUpload(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// HTTPRequest counts a served request.
func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
