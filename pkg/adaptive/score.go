package adaptive

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// Scoring bonus factors. Mobile and congestion bonuses are driven entirely
// by the protocol's characteristic flags; the model never inspects protocol
// identity.
const (
	mobileBonus     = 1.2
	congestionBonus = 1.1
	preferenceBonus = 1.05
)

// scoreModel computes selection scores. It is a pure function of its inputs
// and holds only immutable configuration, so it needs no locking.
type scoreModel struct {
	weights          Weights
	chars            map[protocol.ID]protocol.Characteristics
	preferEncrypted  bool
	preferCompressed bool
	preferredFlags   []protocol.Flag
	requiredFlags    []protocol.Flag
	eligibility      *vm.Program
}

// exprEnv builds the evaluation environment for the eligibility expression.
func exprEnv(id protocol.ID, chars protocol.Characteristics, rec PerformanceRecord, cond NetworkConditions) map[string]interface{} {
	return map[string]interface{}{
		"protocol":   id.String(),
		"chars":      chars,
		"record":     rec,
		"conditions": cond,
	}
}

func newScoreModel(cfg Config) (*scoreModel, error) {
	chars := protocol.DefaultCharacteristics()
	for id, c := range cfg.Characteristics {
		chars[id] = c
	}

	m := &scoreModel{
		weights:          cfg.Weights,
		chars:            chars,
		preferEncrypted:  cfg.PreferEncrypted,
		preferCompressed: cfg.PreferCompressed,
		preferredFlags:   append([]protocol.Flag(nil), cfg.PreferredFlags...),
		requiredFlags:    append([]protocol.Flag(nil), cfg.RequiredFlags...),
	}

	if cfg.EligibilityExpr != "" {
		sample := exprEnv(protocol.LegacyV1, protocol.Characteristics{}, PerformanceRecord{}, NetworkConditions{})
		prog, err := expr.Compile(cfg.EligibilityExpr, expr.Env(sample), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("%w: eligibilityExpr: %v", ErrInvalidConfig, err)
		}
		m.eligibility = prog
	}

	return m, nil
}

// score computes the selection score for a protocol given its cached ledger
// score and the current conditions:
//
//	score = ledgerScore × conditionBonus × weightSum
//
// weightSum is the sum of the measured-criteria weights and acts as a damping
// factor reflecting how much the configuration emphasizes measurement at all.
func (m *scoreModel) score(id protocol.ID, ledgerScore float64, cond NetworkConditions) float64 {
	c := m.chars[id]

	bonus := 1.0
	if cond.IsMobile && c.MobileOptimized {
		bonus *= mobileBonus
	}
	if cond.IsCongested && c.CongestionOptimized {
		bonus *= congestionBonus
	}
	if m.preferEncrypted && c.Encrypted {
		bonus *= preferenceBonus
	}
	if m.preferCompressed && c.Compressed {
		bonus *= preferenceBonus
	}
	for _, f := range m.preferredFlags {
		if c.Has(f) {
			bonus *= preferenceBonus
		}
	}

	return ledgerScore * bonus * m.weights.measuredSum()
}

// eligible applies the characteristic-flag filter and the optional
// eligibility expression. Client support and the minimum threshold are
// checked by the caller.
func (m *scoreModel) eligible(id protocol.ID, rec PerformanceRecord, cond NetworkConditions) bool {
	c := m.chars[id]
	if !c.HasAll(m.requiredFlags) {
		return false
	}
	if m.eligibility == nil {
		return true
	}
	out, err := expr.Run(m.eligibility, exprEnv(id, c, rec, cond))
	if err != nil {
		// A failing expression must not strand the engine; treat the
		// candidate as ineligible and let the caller's reason surface it.
		return false
	}
	ok, _ := out.(bool)
	return ok
}
