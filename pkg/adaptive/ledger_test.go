package adaptive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

func TestEfficiencyScoreInvertsLatencyAndCPU(t *testing.T) {
	w := Weights{Latency: 0.3, Throughput: 0.3, Reliability: 0.25, CPUEfficiency: 0.15}

	fast := PerformanceRecord{AvgLatencyMs: 10, ThroughputMbps: 50, ReliabilityPct: 90, CPUUsagePct: 10}
	slow := fast
	slow.AvgLatencyMs = 90
	slow.CPUUsagePct = 90

	assert.Greater(t, efficiencyScore(fast, w), efficiencyScore(slow, w))

	// 0.3*(100-10) + 0.3*50 + 0.25*90 + 0.15*(100-10)
	assert.InDelta(t, 78.0, efficiencyScore(fast, w), 1e-9)
}

func TestLedgerUpdateStampsAndScores(t *testing.T) {
	l := newLedger()
	w := DefaultConfig().Weights
	now := time.Unix(1000, 0)

	l.update(protocol.QUIC, PerformanceRecord{ThroughputMbps: 50, ReliabilityPct: 90}, w, now)

	rec := l.record(protocol.QUIC)
	assert.True(t, rec.Active)
	assert.Equal(t, now, rec.UpdatedAt)
	assert.InDelta(t, efficiencyScore(rec, w), rec.Score, 1e-9)

	// Every member of the closed set has a record from the start.
	assert.False(t, l.record(protocol.SOCKS5).Active)
	assert.Zero(t, l.score(protocol.SOCKS5))
}

func TestLedgerDriftClampsReliability(t *testing.T) {
	l := newLedger()
	w := DefaultConfig().Weights
	l.update(protocol.QUIC, PerformanceRecord{ReliabilityPct: 100, ThroughputMbps: 10}, w, time.Unix(1000, 0))

	// Repeated mild drift must never push reliability below zero.
	for i := 0; i < 200; i++ {
		l.drift(NetworkConditions{LatencyMs: 60, PacketLossPct: 2}, w)
	}

	rec := l.record(protocol.QUIC)
	assert.GreaterOrEqual(t, rec.ReliabilityPct, 0.0)
	assert.LessOrEqual(t, rec.ReliabilityPct, 100.0)
}

func TestLedgerDriftTiersStack(t *testing.T) {
	l := newLedger()
	w := DefaultConfig().Weights
	l.update(protocol.QUIC, PerformanceRecord{
		AvgLatencyMs: 10, ThroughputMbps: 100, ReliabilityPct: 100,
	}, w, time.Unix(1000, 0))

	// Both the high-latency tier (x0.8) and the heavy-loss tier (x0.7) apply.
	l.drift(NetworkConditions{LatencyMs: 200, PacketLossPct: 10}, w)

	rec := l.record(protocol.QUIC)
	assert.InDelta(t, 56.0, rec.ThroughputMbps, 1e-9)
	assert.InDelta(t, 56.0, rec.ReliabilityPct, 1e-9)
	assert.InDelta(t, 20.0, rec.AvgLatencyMs, 1e-9)
}

func TestHistoryZeroSizeKeepsNothing(t *testing.T) {
	h := newHistory(0)
	h.push(Decision{From: protocol.LegacyV1, To: protocol.QUIC})
	assert.Empty(t, h.snapshot())
}

func TestHistoryEvictsOldestFirst(t *testing.T) {
	h := newHistory(3)
	for _, to := range []protocol.ID{protocol.LegacyV1, protocol.LegacyV2, protocol.LegacyV3, protocol.QUIC} {
		h.push(Decision{To: to})
	}

	got := h.snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, protocol.LegacyV2, got[0].To)
	assert.Equal(t, protocol.QUIC, got[2].To)
}

func TestImprovementPct(t *testing.T) {
	assert.Equal(t, 100.0, improvementPct(0, 50))
	assert.Equal(t, 100.0, improvementPct(-5, 50))
	assert.InDelta(t, 25.0, improvementPct(80, 100), 1e-9)
	assert.InDelta(t, -50.0, improvementPct(100, 50), 1e-9)
}
