package metrics

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrLabelCountMismatch is returned when the number of label values doesn't match the defined labels.
var ErrLabelCountMismatch = errors.New("label count mismatch")

// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// atomicFloat64 provides atomic operations for float64 values.
// It stores the bits of the float64 as a uint64 for atomic access.
type atomicFloat64 struct {
	bits uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(atomic.LoadUint64(&a.bits))
}

func (a *atomicFloat64) Store(val float64) {
	atomic.StoreUint64(&a.bits, math.Float64bits(val))
}

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := atomic.LoadUint64(&a.bits)
		newVal := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(&a.bits, old, math.Float64bits(newVal)) {
			return
		}
	}
}

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric is the interface implemented by all metric types.
type Metric interface {
	// Name returns the metric name.
	Name() string
	// Help returns the help text.
	Help() string
	// Type returns the metric type.
	Type() MetricType
	// Collect returns all metric samples for exposition.
	Collect() []Sample
}

// Sample represents a single metric sample with labels.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Counter is a monotonically increasing metric, optionally partitioned by labels.
type Counter struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]*counterValue
}

type counterValue struct {
	labels map[string]string
	val    atomicFloat64
}

func newCounter(name, help string, labelNames []string) *Counter {
	return &Counter{
		name:       name,
		help:       help,
		labelNames: labelNames,
		values:     make(map[string]*counterValue),
	}
}

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Help returns the help text.
func (c *Counter) Help() string { return c.help }

// Type returns the metric type.
func (c *Counter) Type() MetricType { return MetricTypeCounter }

// Inc increments the unlabeled counter by one.
func (c *Counter) Inc() {
	c.value(nil).val.Add(1)
}

// Add adds delta to the unlabeled counter. Negative deltas are ignored:
// a counter never decreases.
func (c *Counter) Add(delta float64) {
	if delta < 0 {
		return
	}
	c.value(nil).val.Add(delta)
}

// WithLabels returns a handle for the given label values.
// The number of values must match the metric's declared labels.
func (c *Counter) WithLabels(values ...string) (*CounterVec, error) {
	if len(values) != len(c.labelNames) {
		return nil, fmt.Errorf("%w: %s expects %d labels, got %d",
			ErrLabelCountMismatch, c.name, len(c.labelNames), len(values))
	}
	return &CounterVec{counter: c, values: values}, nil
}

func (c *Counter) value(labelValues []string) *counterValue {
	key := labelsKey(labelValues)

	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v
	}
	labels := make(map[string]string, len(c.labelNames))
	for i, name := range c.labelNames {
		labels[name] = labelValues[i]
	}
	v = &counterValue{labels: labels}
	c.values[key] = v
	return v
}

// Collect returns all samples for exposition.
func (c *Counter) Collect() []Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()

	samples := make([]Sample, 0, len(c.values))
	for _, v := range c.values {
		samples = append(samples, Sample{Name: c.name, Labels: v.labels, Value: v.val.Load()})
	}
	return samples
}

// CounterVec is a counter bound to specific label values.
type CounterVec struct {
	counter *Counter
	values  []string
}

// Inc increments the labeled counter by one.
func (v *CounterVec) Inc() {
	v.counter.value(v.values).val.Add(1)
}

// Add adds delta to the labeled counter. Negative deltas are ignored.
func (v *CounterVec) Add(delta float64) {
	if delta < 0 {
		return
	}
	v.counter.value(v.values).val.Add(delta)
}

// Gauge is a metric that can go up and down, optionally partitioned by labels.
type Gauge struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]*gaugeValue
}

type gaugeValue struct {
	labels map[string]string
	val    atomicFloat64
}

func newGauge(name, help string, labelNames []string) *Gauge {
	return &Gauge{
		name:       name,
		help:       help,
		labelNames: labelNames,
		values:     make(map[string]*gaugeValue),
	}
}

// Name returns the metric name.
func (g *Gauge) Name() string { return g.name }

// Help returns the help text.
func (g *Gauge) Help() string { return g.help }

// Type returns the metric type.
func (g *Gauge) Type() MetricType { return MetricTypeGauge }

// Set sets the unlabeled gauge.
func (g *Gauge) Set(value float64) {
	g.value(nil).val.Store(value)
}

// WithLabels returns a handle for the given label values.
func (g *Gauge) WithLabels(values ...string) (*GaugeVec, error) {
	if len(values) != len(g.labelNames) {
		return nil, fmt.Errorf("%w: %s expects %d labels, got %d",
			ErrLabelCountMismatch, g.name, len(g.labelNames), len(values))
	}
	return &GaugeVec{gauge: g, values: values}, nil
}

func (g *Gauge) value(labelValues []string) *gaugeValue {
	key := labelsKey(labelValues)

	g.mu.RLock()
	v, ok := g.values[key]
	g.mu.RUnlock()
	if ok {
		return v
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.values[key]; ok {
		return v
	}
	labels := make(map[string]string, len(g.labelNames))
	for i, name := range g.labelNames {
		labels[name] = labelValues[i]
	}
	v = &gaugeValue{labels: labels}
	g.values[key] = v
	return v
}

// Collect returns all samples for exposition.
func (g *Gauge) Collect() []Sample {
	g.mu.RLock()
	defer g.mu.RUnlock()

	samples := make([]Sample, 0, len(g.values))
	for _, v := range g.values {
		samples = append(samples, Sample{Name: g.name, Labels: v.labels, Value: v.val.Load()})
	}
	return samples
}

// GaugeVec is a gauge bound to specific label values.
type GaugeVec struct {
	gauge  *Gauge
	values []string
}

// Set sets the labeled gauge.
func (v *GaugeVec) Set(value float64) {
	v.gauge.value(v.values).val.Store(value)
}

// Registry holds all registered metrics.
type Registry struct {
	mu      sync.RWMutex
	metrics []Metric
	names   map[string]struct{}
}

// NewRegistry creates a new metric registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// NewCounter creates and registers a new counter.
func (r *Registry) NewCounter(name, help string, labels ...string) *Counter {
	c := newCounter(name, help, labels)
	r.register(c)
	return c
}

// NewGauge creates and registers a new gauge.
func (r *Registry) NewGauge(name, help string, labels ...string) *Gauge {
	g := newGauge(name, help, labels)
	r.register(g)
	return g
}

// register adds a metric to the registry. It panics on a duplicate name,
// since duplicate metric names produce invalid exposition output.
func (r *Registry) register(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[m.Name()]; exists {
		panic(fmt.Sprintf("%s: %s", ErrDuplicateMetric, m.Name()))
	}
	r.names[m.Name()] = struct{}{}
	r.metrics = append(r.metrics, m)
}

// Handler returns an http.Handler serving the registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.RLock()
		metrics := make([]Metric, len(r.metrics))
		copy(metrics, r.metrics)
		r.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		for _, m := range metrics {
			writeMetric(w, m)
		}
	})
}

func writeMetric(w http.ResponseWriter, m Metric) {
	samples := m.Collect()
	if len(samples) == 0 {
		return
	}

	_, _ = fmt.Fprintf(w, "# HELP %s %s\n", m.Name(), escapeHelp(m.Help()))
	_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", m.Name(), m.Type())

	for _, s := range samples {
		if len(s.Labels) == 0 {
			_, _ = fmt.Fprintf(w, "%s %s\n", s.Name, formatFloat(s.Value))
		} else {
			_, _ = fmt.Fprintf(w, "%s{%s} %s\n", s.Name, formatLabels(s.Labels), formatFloat(s.Value))
		}
	}
}

// formatLabels formats labels as key="value",key="value" with sorted keys
// for deterministic output.
func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, escapeLabelValue(labels[k]))
	}
	return strings.Join(parts, ",")
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	s := fmt.Sprintf("%g", v)
	if v == float64(int64(v)) && !strings.Contains(s, ".") && !strings.Contains(s, "e") {
		return fmt.Sprintf("%.0f", v)
	}
	return s
}

func escapeHelp(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func escapeLabelValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func labelsKey(values []string) string {
	return strings.Join(values, "\x00")
}
