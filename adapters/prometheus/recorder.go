package prometheus

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-peers/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultLabels are the tags the peers service attaches to every operation
// metric. Tags outside this set are dropped; missing ones are recorded empty.
var DefaultLabels = []string{"operation", "status", "code", "backend"}

// DefaultBuckets cover local storage latencies in milliseconds.
var DefaultBuckets = []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}

// Recorder implements core.MetricsRecorder. Vectors are created on first use,
// one per metric name, all sharing the same label set.
type Recorder struct {
	factory promauto.Factory
	labels  []string
	buckets []float64

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

type Option func(*Recorder)

func WithLabels(labels ...string) Option {
	return func(r *Recorder) {
		if len(labels) > 0 {
			r.labels = append([]string(nil), labels...)
		}
	}
}

func WithBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// NewRecorder registers vectors with registerer, or the default registerer
// when nil.
func NewRecorder(registerer prometheus.Registerer, opts ...Option) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		factory:    promauto.With(registerer),
		labels:     DefaultLabels,
		buckets:    DefaultBuckets,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	r.counterVec(name).WithLabelValues(r.labelValues(tags)...).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	r.histogramVec(name).WithLabelValues(r.labelValues(tags)...).Observe(value)
}

// Counter returns the vector backing name, if it has been used.
func (r *Recorder) Counter(name string) (*prometheus.CounterVec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vec, ok := r.counters[MetricName(name)]
	return vec, ok
}

func (r *Recorder) Histogram(name string) (*prometheus.HistogramVec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vec, ok := r.histograms[MetricName(name)]
	return vec, ok
}

func (r *Recorder) counterVec(name string) *prometheus.CounterVec {
	metric := MetricName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.counters[metric]; ok {
		return vec
	}
	vec := r.factory.NewCounterVec(prometheus.CounterOpts{
		Name: metric,
		Help: "Peers registry counter " + name,
	}, r.labels)
	r.counters[metric] = vec
	return vec
}

func (r *Recorder) histogramVec(name string) *prometheus.HistogramVec {
	metric := MetricName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.histograms[metric]; ok {
		return vec
	}
	vec := r.factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metric,
		Help:    "Peers registry histogram " + name,
		Buckets: r.buckets,
	}, r.labels)
	r.histograms[metric] = vec
	return vec
}

func (r *Recorder) labelValues(tags map[string]string) []string {
	values := make([]string, len(r.labels))
	for i, label := range r.labels {
		values[i] = tags[label]
	}
	return values
}

// MetricName maps dotted names such as peers.register.total to a valid
// Prometheus name.
func MetricName(name string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "peers_unnamed"
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
