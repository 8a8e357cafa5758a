package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/adaptive"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

func newCollectorFixture(t *testing.T) (*Registry, *AdaptationCollector, *adaptive.Engine, *clockwork.FakeClock) {
	t.Helper()

	cfg := adaptive.DefaultConfig()
	cfg.Supported = append(cfg.Supported, protocol.QUIC)

	clock := clockwork.NewFakeClock()
	engine, err := adaptive.New(cfg, adaptive.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	reg := NewRegistry()
	col := NewAdaptationCollector(reg, engine)
	t.Cleanup(col.Close)

	return reg, col, engine, clock
}

func TestAdaptationCollectorCountsSwitches(t *testing.T) {
	reg, col, engine, clock := newCollectorFixture(t)

	require.NoError(t, engine.UpdatePerformance(protocol.QUIC, adaptive.PerformanceRecord{
		AvgLatencyMs: 10, ThroughputMbps: 100, ReliabilityPct: 99, CPUUsagePct: 10,
	}))
	clock.Advance(adaptive.DefaultSwitchCooldown)

	d, err := engine.Evaluate()
	require.NoError(t, err)
	require.NoError(t, engine.Execute(d))

	col.Refresh()
	rr := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()

	assert.Contains(t, body, `adaptive_switches_total{emergency="false",from="legacy-v3",to="quic"} 1`)
	assert.Contains(t, body, `adaptive_current_protocol{protocol="quic"} 1`)
	assert.Contains(t, body, `adaptive_current_protocol{protocol="legacy-v3"} 0`)
	assert.Contains(t, body, "adaptive_evaluations_total 1")
}

func TestAdaptationCollectorEmergencies(t *testing.T) {
	reg, col, engine, _ := newCollectorFixture(t)

	_, err := engine.ReportFailure(protocol.LegacyV3, "handshake failures")
	require.NoError(t, err)

	col.Refresh()
	rr := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()

	assert.Contains(t, body, "adaptive_emergency_switches_total 1")
	assert.Contains(t, body, `adaptive_switches_total{emergency="true",from="legacy-v3",to="quic"} 1`)
}

func TestAdaptationCollectorCloseStopsCounting(t *testing.T) {
	_, col, engine, clock := newCollectorFixture(t)

	col.Close()
	col.Close() // safe to call twice

	require.NoError(t, engine.UpdatePerformance(protocol.QUIC, adaptive.PerformanceRecord{
		ThroughputMbps: 100, ReliabilityPct: 99,
	}))
	clock.Advance(adaptive.DefaultSwitchCooldown)
	d, err := engine.Evaluate()
	require.NoError(t, err)
	require.NoError(t, engine.Execute(d))

	samples := col.switches.Collect()
	assert.Empty(t, samples)
}
