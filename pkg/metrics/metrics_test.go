package metrics

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg *Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	return rr.Body.String()
}

func TestCounter(t *testing.T) {
	reg := NewRegistry()
	c := reg.NewCounter("requests_total", "Total requests.")

	c.Inc()
	c.Add(2)
	c.Add(-5) // ignored, counters never decrease

	body := scrape(t, reg)
	assert.Contains(t, body, "# HELP requests_total Total requests.")
	assert.Contains(t, body, "# TYPE requests_total counter")
	assert.Contains(t, body, "requests_total 3")
}

func TestCounterLabels(t *testing.T) {
	reg := NewRegistry()
	c := reg.NewCounter("switches_total", "Switches.", "from", "to")

	v, err := c.WithLabels("socks5", "quic")
	require.NoError(t, err)
	v.Inc()
	v.Inc()

	_, err = c.WithLabels("socks5")
	assert.ErrorIs(t, err, ErrLabelCountMismatch)

	body := scrape(t, reg)
	assert.Contains(t, body, `switches_total{from="socks5",to="quic"} 2`)
}

func TestGauge(t *testing.T) {
	reg := NewRegistry()
	g := reg.NewGauge("score", "Score.", "protocol")

	v, err := g.WithLabels("quic")
	require.NoError(t, err)
	v.Set(95.25)
	v.Set(42.5)

	body := scrape(t, reg)
	assert.Contains(t, body, "# TYPE score gauge")
	assert.Contains(t, body, `score{protocol="quic"} 42.5`)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	reg.NewCounter("dup", "first")
	assert.Panics(t, func() { reg.NewCounter("dup", "second") })
	assert.Panics(t, func() { reg.NewGauge("dup", "third") })
}

func TestHandlerSkipsEmptyMetrics(t *testing.T) {
	reg := NewRegistry()
	reg.NewCounter("untouched_total", "Never incremented.")

	body := scrape(t, reg)
	assert.NotContains(t, body, "untouched_total")
}

func TestLabelValueEscaping(t *testing.T) {
	reg := NewRegistry()
	g := reg.NewGauge("weird", "Escaping.", "label")

	v, err := g.WithLabels(`quo"te`)
	require.NoError(t, err)
	v.Set(1)

	assert.Contains(t, scrape(t, reg), `weird{label="quo\"te"} 1`)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "3", formatFloat(3))
	assert.Equal(t, "3.5", formatFloat(3.5))
	assert.Equal(t, "NaN", formatFloat(math.NaN()))
	assert.Equal(t, "+Inf", formatFloat(math.Inf(1)))
}
