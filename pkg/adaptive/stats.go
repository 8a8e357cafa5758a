package adaptive

import (
	"time"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// Stats is a read-only, internally consistent snapshot of cumulative
// adaptation statistics. It is taken under the same exclusion domain as all
// mutating operations, so no field can reflect a half-applied switch.
type Stats struct {
	// TotalSwitches counts executed decisions with To != From.
	TotalSwitches uint64 `json:"totalSwitches"`

	// SuccessfulSwitches counts committed switches.
	SuccessfulSwitches uint64 `json:"successfulSwitches"`

	// FailedSwitches counts switch attempts rejected by the coordinator.
	FailedSwitches uint64 `json:"failedSwitches"`

	// EmergencySwitches counts committed switches with the emergency flag.
	EmergencySwitches uint64 `json:"emergencySwitches"`

	// SuppressedEmergencies counts emergency requests rejected by the
	// emergency rate limit.
	SuppressedEmergencies uint64 `json:"suppressedEmergencies"`

	// Evaluations counts calls to Evaluate.
	Evaluations uint64 `json:"evaluations"`

	// AvgImprovementPct is the running average of expected improvement
	// across committed switches.
	AvgImprovementPct float64 `json:"avgImprovementPct"`

	// AvgSwitchLatency is the running average of decision-to-commit latency.
	AvgSwitchLatency time.Duration `json:"avgSwitchLatency"`

	// Usage is the cumulative active duration per protocol, including the
	// current protocol's time accrued up to the snapshot.
	Usage map[protocol.ID]time.Duration `json:"usage"`

	// LastSwitchAt is the time of the most recent committed switch, or the
	// engine start time if none has occurred. Monotonically non-decreasing.
	LastSwitchAt time.Time `json:"lastSwitchAt"`

	// Current is the active protocol.
	Current protocol.ID `json:"current"`

	// State is the decision engine's operating state.
	State State `json:"state"`

	// Scores holds the per-protocol cached efficiency scores.
	Scores map[protocol.ID]float64 `json:"scores"`

	// Recent holds the bounded recent-decision buffer, oldest first.
	Recent []Decision `json:"recent,omitempty"`
}

// counters is the engine's internal mutable statistics state.
type counters struct {
	totalSwitches         uint64
	successfulSwitches    uint64
	failedSwitches        uint64
	emergencySwitches     uint64
	suppressedEmergencies uint64
	evaluations           uint64

	improvementSum float64
	latencySum     time.Duration

	usage map[protocol.ID]time.Duration
}

func newCounters() *counters {
	return &counters{usage: make(map[protocol.ID]time.Duration, protocol.Count())}
}

func (c *counters) avgImprovement() float64 {
	if c.successfulSwitches == 0 {
		return 0
	}
	return c.improvementSum / float64(c.successfulSwitches)
}

func (c *counters) avgLatency() time.Duration {
	if c.successfulSwitches == 0 {
		return 0
	}
	return c.latencySum / time.Duration(c.successfulSwitches)
}
