package adaptive

import (
	"fmt"
	"time"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// State is the decision engine's operating state.
type State int

const (
	// StateStable means the engine is operating with no decision pending.
	StateStable State = iota
	// StateEvaluating means candidate scores are being computed.
	StateEvaluating
	// StateCooldownBlocked means a better candidate exists but the switch
	// cooldown has not elapsed.
	StateCooldownBlocked
	// StateEmergency means a forced transition is in progress.
	StateEmergency
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StateStable:
		return "stable"
	case StateEvaluating:
		return "evaluating"
	case StateCooldownBlocked:
		return "cooldown_blocked"
	case StateEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state name, so JSON payloads carry "stable"
// rather than an ordinal.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stable":
		*s = StateStable
	case "evaluating":
		*s = StateEvaluating
	case "cooldown_blocked":
		*s = StateCooldownBlocked
	case "emergency":
		*s = StateEmergency
	default:
		return fmt.Errorf("unknown engine state %q", text)
	}
	return nil
}

// Advisory confidence values. Confidence carries no calibrated signal yet;
// it is reported as a fixed constant per decision kind until a model backed
// by real sample variance exists.
const (
	confidenceNormal    = 75
	confidenceEmergency = 90
)

// Decision is the outcome of one evaluation cycle. A decision with To == From
// is a no-op: the engine stays where it is and Reason explains why.
type Decision struct {
	// From is the protocol active when the decision was produced.
	From protocol.ID `json:"from"`

	// To is the selected protocol. Equal to From for no-op decisions.
	To protocol.ID `json:"to"`

	// At is when the decision was produced.
	At time.Time `json:"at"`

	// Confidence is an advisory confidence value in [0, 100].
	Confidence int `json:"confidence"`

	// ExpectedImprovementPct is the relative score improvement of To over
	// From, in percent. Zero for no-op decisions.
	ExpectedImprovementPct float64 `json:"expectedImprovementPct"`

	// Reason is a human-readable explanation of the decision.
	Reason string `json:"reason"`

	// Conditions is the conditions snapshot the decision was computed from.
	Conditions NetworkConditions `json:"conditions"`

	// Performance is the ledger record of To at decision time.
	Performance PerformanceRecord `json:"performance"`

	// Emergency marks a forced transition that bypasses the ordinary cooldown.
	Emergency bool `json:"emergency"`
}

// NoOp reports whether the decision leaves the active protocol unchanged.
func (d Decision) NoOp() bool {
	return d.To == d.From
}

// String returns a compact log representation.
func (d Decision) String() string {
	if d.NoOp() {
		return fmt.Sprintf("stay on %s: %s", d.From, d.Reason)
	}
	kind := "switch"
	if d.Emergency {
		kind = "emergency switch"
	}
	return fmt.Sprintf("%s %s -> %s (+%.1f%%): %s", kind, d.From, d.To, d.ExpectedImprovementPct, d.Reason)
}

// history is a bounded ring of recent decisions, oldest evicted first.
type history struct {
	buf []Decision
	max int
}

func newHistory(max int) *history {
	return &history{max: max}
}

func (h *history) push(d Decision) {
	if h.max == 0 {
		return
	}
	if len(h.buf) == h.max {
		copy(h.buf, h.buf[1:])
		h.buf = h.buf[:len(h.buf)-1]
	}
	h.buf = append(h.buf, d)
}

func (h *history) snapshot() []Decision {
	out := make([]Decision, len(h.buf))
	copy(out, h.buf)
	return out
}
