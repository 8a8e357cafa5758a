package adaptive

import (
	"time"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// PerformanceRecord is the latest measured performance for one protocol,
// pushed by transport-layer telemetry. A record exists for every member of
// the closed protocol set at all times; protocols that have never reported
// hold a zero-valued, inactive record.
type PerformanceRecord struct {
	// AvgLatencyMs is the average request latency in milliseconds.
	AvgLatencyMs float64 `json:"avgLatencyMs" yaml:"avgLatencyMs"`

	// ThroughputMbps is the measured throughput.
	ThroughputMbps float64 `json:"throughputMbps" yaml:"throughputMbps"`

	// ReliabilityPct is the success percentage (0-100).
	ReliabilityPct float64 `json:"reliabilityPct" yaml:"reliabilityPct"`

	// CPUUsagePct is the CPU cost percentage attributed to the protocol.
	CPUUsagePct float64 `json:"cpuUsagePct" yaml:"cpuUsagePct"`

	// MemoryBytes is the memory attributed to the protocol.
	MemoryBytes uint64 `json:"memoryBytes" yaml:"memoryBytes"`

	// Connections is the number of live connections.
	Connections int `json:"connections" yaml:"connections"`

	// BytesTransferred is the cumulative byte count.
	BytesTransferred uint64 `json:"bytesTransferred" yaml:"bytesTransferred"`

	// Errors is the cumulative error count.
	Errors int64 `json:"errors" yaml:"errors"`

	// CompressionRatio is the measured compression ratio, 0 if not compressed.
	CompressionRatio float64 `json:"compressionRatio" yaml:"compressionRatio"`

	// UpdatedAt is when the record was last replaced by a telemetry push.
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`

	// Active indicates the protocol has reported telemetry at least once.
	Active bool `json:"active" yaml:"active"`

	// Score is the cached efficiency score, recomputed on every update and
	// on every condition drift pass. It is a deterministic function of the
	// record's fields and the configured weights.
	Score float64 `json:"score" yaml:"score"`
}

// efficiencyScore computes the weighted efficiency score for a record.
// Latency and CPU usage are inverted so that lower measurements score higher.
func efficiencyScore(rec PerformanceRecord, w Weights) float64 {
	return (100-rec.AvgLatencyMs)*w.Latency +
		rec.ThroughputMbps*w.Throughput +
		rec.ReliabilityPct*w.Reliability +
		(100-rec.CPUUsagePct)*w.CPUEfficiency
}

// ledger holds the latest performance record per protocol. It carries no
// lock of its own: the owning engine serializes all access.
type ledger struct {
	records map[protocol.ID]*PerformanceRecord
}

func newLedger() *ledger {
	l := &ledger{records: make(map[protocol.ID]*PerformanceRecord, protocol.Count())}
	for _, id := range protocol.All() {
		l.records[id] = &PerformanceRecord{}
	}
	return l
}

// update replaces the record for id, marks it active, stamps the update time
// and recomputes the cached efficiency score.
func (l *ledger) update(id protocol.ID, rec PerformanceRecord, w Weights, now time.Time) {
	rec.Active = true
	rec.UpdatedAt = now
	rec.Score = efficiencyScore(rec, w)
	*l.records[id] = rec
}

// drift degrades every active record to model expectation decay between
// telemetry samples. The tiers mirror how quickly measured performance goes
// stale under the observed conditions: high path latency and packet loss
// both pull recorded throughput and reliability down.
func (l *ledger) drift(cond NetworkConditions, w Weights) {
	for _, rec := range l.records {
		if !rec.Active {
			continue
		}

		switch {
		case cond.LatencyMs > 100:
			rec.ThroughputMbps *= 0.8
			rec.ReliabilityPct *= 0.8
			// Inflate stored latency in proportion to the observed path latency.
			rec.AvgLatencyMs *= cond.LatencyMs / 100
		case cond.LatencyMs >= 50:
			rec.ThroughputMbps *= 0.9
			rec.ReliabilityPct *= 0.9
		}

		switch {
		case cond.PacketLossPct > 5:
			rec.ThroughputMbps *= 0.7
			rec.ReliabilityPct *= 0.7
		case cond.PacketLossPct >= 1:
			rec.ThroughputMbps *= 0.9
			rec.ReliabilityPct *= 0.9
		}

		if rec.ReliabilityPct < 0 {
			rec.ReliabilityPct = 0
		}
		if rec.ReliabilityPct > 100 {
			rec.ReliabilityPct = 100
		}

		rec.Score = efficiencyScore(*rec, w)
	}
}

// score returns the cached efficiency score for id. O(1).
func (l *ledger) score(id protocol.ID) float64 {
	return l.records[id].Score
}

// record returns a copy of the record for id.
func (l *ledger) record(id protocol.ID) PerformanceRecord {
	return *l.records[id]
}

// snapshot returns a copy of every record.
func (l *ledger) snapshot() map[protocol.ID]PerformanceRecord {
	out := make(map[protocol.ID]PerformanceRecord, len(l.records))
	for id, rec := range l.records {
		out[id] = *rec
	}
	return out
}
