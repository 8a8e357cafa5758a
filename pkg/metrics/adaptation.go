package metrics

import (
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/adaptive"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// AdaptationCollector exports an adaptive engine's statistics as metrics.
// Switch counters are updated through an engine subscription; gauges are
// refreshed from a stats snapshot on every Refresh call, which the admin
// server invokes before serving the exposition endpoint.
type AdaptationCollector struct {
	engine *adaptive.Engine
	sub    adaptive.Subscription

	switches    *Counter
	emergencies *Counter

	evaluations *Gauge
	suppressed  *Gauge
	failed      *Gauge
	current     *Gauge
	scores      *Gauge
	usage       *Gauge
}

// NewAdaptationCollector registers the adaptation metric set on reg and
// subscribes to the engine's switch events.
func NewAdaptationCollector(reg *Registry, engine *adaptive.Engine) *AdaptationCollector {
	c := &AdaptationCollector{
		engine: engine,
		switches: reg.NewCounter("adaptive_switches_total",
			"Committed protocol switches.", "from", "to", "emergency"),
		emergencies: reg.NewCounter("adaptive_emergency_switches_total",
			"Committed emergency protocol switches."),
		evaluations: reg.NewGauge("adaptive_evaluations_total",
			"Evaluation cycles run."),
		suppressed: reg.NewGauge("adaptive_suppressed_emergencies_total",
			"Emergency switches rejected by the emergency rate limit."),
		failed: reg.NewGauge("adaptive_failed_switches_total",
			"Switch attempts rejected by the coordinator."),
		current: reg.NewGauge("adaptive_current_protocol",
			"Active protocol, one-hot per protocol label.", "protocol"),
		scores: reg.NewGauge("adaptive_protocol_score",
			"Cached per-protocol efficiency score.", "protocol"),
		usage: reg.NewGauge("adaptive_protocol_usage_seconds",
			"Cumulative active duration per protocol.", "protocol"),
	}

	c.sub = engine.SubscribeSwitches(func(d adaptive.Decision) {
		emergency := "false"
		if d.Emergency {
			emergency = "true"
			c.emergencies.Inc()
		}
		if v, err := c.switches.WithLabels(d.From.String(), d.To.String(), emergency); err == nil {
			v.Inc()
		}
	})

	return c
}

// Refresh pulls a stats snapshot from the engine and updates every gauge.
func (c *AdaptationCollector) Refresh() {
	stats := c.engine.Stats()

	c.evaluations.Set(float64(stats.Evaluations))
	c.suppressed.Set(float64(stats.SuppressedEmergencies))
	c.failed.Set(float64(stats.FailedSwitches))

	for _, id := range protocol.All() {
		name := id.String()
		if v, err := c.current.WithLabels(name); err == nil {
			if id == stats.Current {
				v.Set(1)
			} else {
				v.Set(0)
			}
		}
		if v, err := c.scores.WithLabels(name); err == nil {
			v.Set(stats.Scores[id])
		}
		if v, err := c.usage.WithLabels(name); err == nil {
			v.Set(stats.Usage[id].Seconds())
		}
	}
}

// Close drops the engine subscription.
func (c *AdaptationCollector) Close() {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
}
