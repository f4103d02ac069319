// Package metrics backs core.MetricsRecorder with Prometheus collectors.
package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-issuer-agent/core"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder lazily registers one vector per metric name. The label
// set is fixed by the first observation; later tags outside it are dropped and
// missing ones are recorded as empty.
type PrometheusRecorder struct {
	namespace  string
	registerer prometheus.Registerer
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*vec[*prometheus.CounterVec]
	histograms map[string]*vec[*prometheus.HistogramVec]
	logger     core.Logger
}

type vec[T any] struct {
	collector T
	labels    []string
}

type Option func(*PrometheusRecorder)

func WithNamespace(namespace string) Option {
	return func(r *PrometheusRecorder) {
		r.namespace = sanitize(namespace)
	}
}

func WithBuckets(buckets []float64) Option {
	return func(r *PrometheusRecorder) {
		r.buckets = append([]float64(nil), buckets...)
	}
}

func WithLogger(logger core.Logger) Option {
	return func(r *PrometheusRecorder) {
		r.logger = logger
	}
}

// DefaultDurationBuckets are in milliseconds.
var DefaultDurationBuckets = []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

func NewPrometheusRecorder(registerer prometheus.Registerer, opts ...Option) *PrometheusRecorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		registerer: registerer,
		buckets:    DefaultDurationBuckets,
		counters:   map[string]*vec[*prometheus.CounterVec]{},
		histograms: map[string]*vec[*prometheus.HistogramVec]{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.logger = glog.Ensure(r.logger)
	return r
}

func (r *PrometheusRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.counters[name]
	if !ok {
		labels := labelNames(tags)
		collector := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      sanitize(name),
			Help:      "Counter " + name,
		}, labels)
		if err := r.registerer.Register(collector); err != nil {
			existing, isExisting := err.(prometheus.AlreadyRegisteredError)
			if !isExisting {
				r.logger.Warn("metrics: counter registration failed", "name", name, "error", err.Error())
				return
			}
			collector, ok = existing.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return
			}
		}
		entry = &vec[*prometheus.CounterVec]{collector: collector, labels: labels}
		r.counters[name] = entry
	}
	entry.collector.WithLabelValues(labelValues(entry.labels, tags)...).Add(float64(value))
}

func (r *PrometheusRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.histograms[name]
	if !ok {
		labels := labelNames(tags)
		collector := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      sanitize(name),
			Help:      "Histogram " + name,
			Buckets:   r.buckets,
		}, labels)
		if err := r.registerer.Register(collector); err != nil {
			existing, isExisting := err.(prometheus.AlreadyRegisteredError)
			if !isExisting {
				r.logger.Warn("metrics: histogram registration failed", "name", name, "error", err.Error())
				return
			}
			collector, ok = existing.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				return
			}
		}
		entry = &vec[*prometheus.HistogramVec]{collector: collector, labels: labels}
		r.histograms[name] = entry
	}
	entry.collector.WithLabelValues(labelValues(entry.labels, tags)...).Observe(value)
}

func labelNames(tags map[string]string) []string {
	out := make([]string, 0, len(tags))
	for key := range tags {
		out = append(out, sanitize(key))
	}
	sort.Strings(out)
	return out
}

func labelValues(labels []string, tags map[string]string) []string {
	normalized := make(map[string]string, len(tags))
	for key, value := range tags {
		normalized[sanitize(key)] = value
	}
	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = normalized[label]
	}
	return out
}

// sanitize maps dotted metric names onto the Prometheus charset.
func sanitize(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)
