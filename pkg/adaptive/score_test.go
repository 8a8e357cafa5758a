package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

func newTestModel(t *testing.T, mutate func(*Config)) *scoreModel {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := newScoreModel(cfg)
	require.NoError(t, err)
	return m
}

func TestScoreBonuses(t *testing.T) {
	m := newTestModel(t, nil)
	base := 100.0

	calm := NetworkConditions{}
	mobile := NetworkConditions{IsMobile: true}
	congested := NetworkConditions{IsCongested: true}
	both := NetworkConditions{IsMobile: true, IsCongested: true}

	// QUIC carries both optimization flags.
	plain := m.score(protocol.QUIC, base, calm)
	assert.InDelta(t, plain*1.2, m.score(protocol.QUIC, base, mobile), 1e-9)
	assert.InDelta(t, plain*1.1, m.score(protocol.QUIC, base, congested), 1e-9)
	assert.InDelta(t, plain*1.2*1.1, m.score(protocol.QUIC, base, both), 1e-9)

	// LegacyV1 carries neither, so conditions change nothing.
	assert.Equal(t, m.score(protocol.LegacyV1, base, calm), m.score(protocol.LegacyV1, base, both))
}

func TestScorePreferenceBonuses(t *testing.T) {
	plain := newTestModel(t, nil)
	encrypted := newTestModel(t, func(c *Config) { c.PreferEncrypted = true })

	base := 100.0
	calm := NetworkConditions{}

	// Shadowsocks is encrypted, SOCKS5 is not.
	assert.InDelta(t,
		plain.score(protocol.Shadowsocks, base, calm)*preferenceBonus,
		encrypted.score(protocol.Shadowsocks, base, calm), 1e-9)
	assert.Equal(t,
		plain.score(protocol.SOCKS5, base, calm),
		encrypted.score(protocol.SOCKS5, base, calm))
}

func TestScoreDampedByMeasuredWeights(t *testing.T) {
	half := newTestModel(t, func(c *Config) {
		c.Weights = Weights{Latency: 0.25, Throughput: 0.25}
	})
	full := newTestModel(t, nil)

	calm := NetworkConditions{}
	assert.InDelta(t,
		full.score(protocol.LegacyV1, 100, calm)/2,
		half.score(protocol.LegacyV1, 100, calm), 1e-9)
}

func TestCharacteristicsOverride(t *testing.T) {
	m := newTestModel(t, func(c *Config) {
		c.Characteristics = map[protocol.ID]protocol.Characteristics{
			protocol.SOCKS5: {MobileOptimized: true},
		}
	})

	mobile := NetworkConditions{IsMobile: true}
	assert.InDelta(t,
		m.score(protocol.SOCKS5, 100, NetworkConditions{})*mobileBonus,
		m.score(protocol.SOCKS5, 100, mobile), 1e-9)
}

func TestEligibleRequiredFlags(t *testing.T) {
	m := newTestModel(t, func(c *Config) {
		c.RequiredFlags = []protocol.Flag{protocol.FlagEncrypted, protocol.FlagReliable}
	})

	calm := NetworkConditions{}
	assert.True(t, m.eligible(protocol.QUIC, PerformanceRecord{}, calm))
	assert.False(t, m.eligible(protocol.SOCKS5, PerformanceRecord{}, calm))
}

func TestEligibleExpression(t *testing.T) {
	m := newTestModel(t, func(c *Config) {
		c.EligibilityExpr = `chars.Encrypted && conditions.PacketLossPct < 5`
	})

	good := NetworkConditions{PacketLossPct: 1}
	bad := NetworkConditions{PacketLossPct: 9}

	assert.True(t, m.eligible(protocol.QUIC, PerformanceRecord{}, good))
	assert.False(t, m.eligible(protocol.QUIC, PerformanceRecord{}, bad))
	assert.False(t, m.eligible(protocol.SOCKS5, PerformanceRecord{}, good))
}

func TestEligibleExpressionByProtocolName(t *testing.T) {
	m := newTestModel(t, func(c *Config) {
		c.EligibilityExpr = `protocol != "legacy-v1"`
	})

	calm := NetworkConditions{}
	assert.False(t, m.eligible(protocol.LegacyV1, PerformanceRecord{}, calm))
	assert.True(t, m.eligible(protocol.LegacyV2, PerformanceRecord{}, calm))
}
