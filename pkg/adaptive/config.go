package adaptive

import (
	"fmt"
	"time"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// Weights holds the per-criterion selection weights. All weights must be
// non-negative. Latency, Throughput, Reliability and CPUEfficiency feed the
// efficiency score directly; Security, Compatibility and Cost are recognized
// and validated but advisory (see Config docs).
type Weights struct {
	Latency       float64 `json:"latency" yaml:"latency"`
	Throughput    float64 `json:"throughput" yaml:"throughput"`
	Reliability   float64 `json:"reliability" yaml:"reliability"`
	CPUEfficiency float64 `json:"cpuEfficiency" yaml:"cpuEfficiency"`
	Security      float64 `json:"security" yaml:"security"`
	Compatibility float64 `json:"compatibility" yaml:"compatibility"`
	Cost          float64 `json:"cost" yaml:"cost"`
}

// measuredSum returns the sum of the weights that feed the efficiency score.
// It acts as a damping factor: a configuration that barely weights measured
// criteria produces proportionally smaller selection scores.
func (w Weights) measuredSum() float64 {
	return w.Latency + w.Throughput + w.Reliability + w.CPUEfficiency
}

// Config holds the full engine configuration. The zero value is not usable;
// start from DefaultConfig and override fields as needed.
type Config struct {
	// Weights are the per-criterion selection weights.
	Weights Weights `json:"weights" yaml:"weights"`

	// PreferEncrypted applies a small scoring bonus to encrypted protocols.
	PreferEncrypted bool `json:"preferEncrypted" yaml:"preferEncrypted"`

	// PreferCompressed applies a small scoring bonus to compressed protocols.
	PreferCompressed bool `json:"preferCompressed" yaml:"preferCompressed"`

	// MinPerformanceThreshold is the minimum selection score a candidate
	// must reach to be eligible at all.
	MinPerformanceThreshold float64 `json:"minimumPerformanceThreshold" yaml:"minimumPerformanceThreshold"`

	// SwitchCooldown is the minimum interval between two ordinary switches.
	// Must be strictly positive.
	SwitchCooldown time.Duration `json:"switchCooldownPeriod" yaml:"switchCooldownPeriod"`

	// EmergencyMinInterval is the independent, stricter rate limit applied
	// between emergency switches. Must be strictly positive and at least
	// SwitchCooldown.
	EmergencyMinInterval time.Duration `json:"emergencyMinInterval" yaml:"emergencyMinInterval"`

	// MaxSwitchFrequency caps ordinary switches per minute. 0 disables the cap.
	MaxSwitchFrequency int `json:"maxSwitchFrequency" yaml:"maxSwitchFrequency"`

	// RequiredFlags are characteristics a candidate must have to be eligible.
	RequiredFlags []protocol.Flag `json:"requiredFlags,omitempty" yaml:"requiredFlags,omitempty"`

	// PreferredFlags are characteristics that earn a small scoring bonus.
	PreferredFlags []protocol.Flag `json:"preferredFlags,omitempty" yaml:"preferredFlags,omitempty"`

	// EligibilityExpr is an optional expr-lang expression evaluated per
	// candidate. It must return a boolean; candidates for which it returns
	// false are filtered out. The expression environment exposes:
	//
	//	protocol    string                  canonical protocol name
	//	chars       protocol.Characteristics
	//	record      PerformanceRecord       latest ledger entry
	//	conditions  NetworkConditions       current conditions snapshot
	//
	// Example: `record.ReliabilityPct >= 95 || chars.Encrypted`
	EligibilityExpr string `json:"eligibilityExpr,omitempty" yaml:"eligibilityExpr,omitempty"`

	// InitialProtocol is the protocol active at engine start.
	InitialProtocol protocol.ID `json:"-" yaml:"-"`

	// Supported lists the protocols the peer supports at engine start.
	// The table can be replaced at runtime with SetSupport/SetSupportTable.
	Supported []protocol.ID `json:"-" yaml:"-"`

	// HistorySize bounds the recent-decision buffer.
	HistorySize int `json:"historySize" yaml:"historySize"`

	// Characteristics overrides the built-in characteristics table for the
	// listed protocols. Protocols not listed keep their defaults.
	Characteristics map[protocol.ID]protocol.Characteristics `json:"-" yaml:"-"`
}

// Default configuration values.
const (
	DefaultSwitchCooldown       = 5 * time.Second
	DefaultEmergencyMinInterval = 30 * time.Second
	DefaultMinThreshold         = 0.0
	DefaultHistorySize          = 32
)

// DefaultConfig returns a configuration with balanced weights, the default
// cooldown and emergency intervals, and the legacy v3 transport active and
// supported.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Latency:       0.3,
			Throughput:    0.3,
			Reliability:   0.25,
			CPUEfficiency: 0.15,
		},
		MinPerformanceThreshold: DefaultMinThreshold,
		SwitchCooldown:          DefaultSwitchCooldown,
		EmergencyMinInterval:    DefaultEmergencyMinInterval,
		InitialProtocol:         protocol.LegacyV3,
		Supported:               []protocol.ID{protocol.LegacyV3},
		HistorySize:             DefaultHistorySize,
	}
}

// Validate checks the configuration for construction-time errors.
// All failures wrap ErrInvalidConfig.
func (c Config) Validate() error {
	for name, w := range map[string]float64{
		"latency":       c.Weights.Latency,
		"throughput":    c.Weights.Throughput,
		"reliability":   c.Weights.Reliability,
		"cpuEfficiency": c.Weights.CPUEfficiency,
		"security":      c.Weights.Security,
		"compatibility": c.Weights.Compatibility,
		"cost":          c.Weights.Cost,
	} {
		if w < 0 {
			return fmt.Errorf("%w: weight %s is negative (%v)", ErrInvalidConfig, name, w)
		}
	}
	if c.Weights.measuredSum() == 0 {
		return fmt.Errorf("%w: all measured-criteria weights are zero", ErrInvalidConfig)
	}
	if c.MinPerformanceThreshold < 0 {
		return fmt.Errorf("%w: minimumPerformanceThreshold is negative", ErrInvalidConfig)
	}
	if c.SwitchCooldown <= 0 {
		return fmt.Errorf("%w: switchCooldownPeriod must be positive", ErrInvalidConfig)
	}
	if c.EmergencyMinInterval <= 0 {
		return fmt.Errorf("%w: emergencyMinInterval must be positive", ErrInvalidConfig)
	}
	if c.EmergencyMinInterval < c.SwitchCooldown {
		return fmt.Errorf("%w: emergencyMinInterval (%s) must not be shorter than switchCooldownPeriod (%s)",
			ErrInvalidConfig, c.EmergencyMinInterval, c.SwitchCooldown)
	}
	if c.MaxSwitchFrequency < 0 {
		return fmt.Errorf("%w: maxSwitchFrequency is negative", ErrInvalidConfig)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("%w: historySize is negative", ErrInvalidConfig)
	}
	if !c.InitialProtocol.Valid() {
		return fmt.Errorf("%w: initial protocol %d outside the known set", ErrInvalidConfig, int(c.InitialProtocol))
	}
	for _, id := range c.Supported {
		if !id.Valid() {
			return fmt.Errorf("%w: supported protocol %d outside the known set", ErrInvalidConfig, int(id))
		}
	}
	for _, f := range c.RequiredFlags {
		if !protocol.ValidFlag(f) {
			return fmt.Errorf("%w: unknown required flag %q", ErrInvalidConfig, f)
		}
	}
	for _, f := range c.PreferredFlags {
		if !protocol.ValidFlag(f) {
			return fmt.Errorf("%w: unknown preferred flag %q", ErrInvalidConfig, f)
		}
	}
	return nil
}
