// Package metrics records locate requests in a private Prometheus registry.
// Batch runs dump the registry in the node-exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/user/framegrab/pkg/locator"
)

// Metrics implements locator.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      prometheus.Histogram
	packetsRead   prometheus.Histogram
	framesDecoded prometheus.Counter
	transitions   *prometheus.CounterVec
	approximate   prometheus.Counter
	exportedBytes *prometheus.CounterVec
}

// New creates the collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "framegrab_locate_requests_total",
			Help: "Locate requests by terminal state and failure kind",
		}, []string{"state", "kind"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "framegrab_locate_duration_seconds",
			Help:    "Wall time of a locate request including export",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		packetsRead: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "framegrab_locate_packets_read",
			Help:    "Packets read from the container per request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		framesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "framegrab_frames_decoded_total",
			Help: "Frames emitted by the decoder across all requests",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "framegrab_locator_transitions_total",
			Help: "Locator state transitions by target state",
		}, []string{"to"}),
		approximate: factory.NewCounter(prometheus.CounterOpts{
			Name: "framegrab_approximate_matches_total",
			Help: "Requests answered from an estimated timestamp",
		}),
		exportedBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "framegrab_exported_bytes_total",
			Help: "Encoded image bytes written, by format",
		}, []string{"format"}),
	}
}

// Transition counts a state change.
func (m *Metrics) Transition(from, to locator.State) {
	m.transitions.WithLabelValues(to.String()).Inc()
}

// Completed records a finished request.
func (m *Metrics) Completed(res locator.Result) {
	kind := ""
	if res.Err != nil {
		kind = res.Kind.String()
	}
	m.requests.WithLabelValues(res.State.String(), kind).Inc()
	m.duration.Observe(res.Duration.Seconds())
	m.packetsRead.Observe(float64(res.Stats.PacketsRead))
	m.framesDecoded.Add(float64(res.Stats.FramesDecoded))
	if res.Approximate && res.Err == nil {
		m.approximate.Inc()
	}
	for _, img := range res.Images {
		m.exportedBytes.WithLabelValues(img.Format.String()).Add(float64(img.Size))
	}
}

// WriteToTextfile writes the registry to path atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

var _ locator.Observer = (*Metrics)(nil)
