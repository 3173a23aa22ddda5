// Package metrics exports correction outcomes as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironsheep/perspective-mcp/internal/perspective"
)

// Result labels for the outcomes counter.
const (
	ResultDetected        = "detected"
	ResultFallback        = "fallback"
	ResultPassthrough     = "passthrough"
	ResultDetectionFailed = "detection_failed"
	ResultRenderFailed    = "render_failed"
)

// Recorder implements perspective.Observer on its own registry.
type Recorder struct {
	registry   *prometheus.Registry
	outcomes   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	confidence prometheus.Histogram
}

// NewRecorder creates a Recorder with process and Go runtime collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "perspective",
			Name:      "corrections_total",
			Help:      "Completed correction requests by result.",
		}, []string{"result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "perspective",
			Name:      "correction_duration_seconds",
			Help:      "Wall time of correction requests.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"result"}),
		confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "perspective",
			Name:      "detection_confidence",
			Help:      "Confidence of warped detector candidates.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
}

// ObserveOutcome records one completed request.
func (r *Recorder) ObserveOutcome(o perspective.Outcome) {
	result := Classify(o)
	r.outcomes.WithLabelValues(result).Inc()
	r.duration.WithLabelValues(result).Observe(o.ElapsedMs / 1000)
	if o.Confidence != nil {
		r.confidence.Observe(*o.Confidence)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Classify maps an outcome to its result label.
func Classify(o perspective.Outcome) string {
	switch {
	case o.DidApplyCorrection && o.UsedFallback:
		return ResultFallback
	case o.DidApplyCorrection:
		return ResultDetected
	case errors.Is(o.Err, perspective.ErrDetectorUnavailable):
		return ResultDetectionFailed
	case errors.Is(o.Err, perspective.ErrRenderFailure):
		return ResultRenderFailed
	default:
		return ResultPassthrough
	}
}
