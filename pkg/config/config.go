// Package config loads the proxy's adaptation configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/adaptive"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// File is the on-disk configuration schema. Durations are strings in Go
// duration syntax ("5s", "1m30s"). Zero values fall back to engine defaults.
type File struct {
	// Admin configures the admin API server.
	Admin AdminConfig `yaml:"admin"`

	// Logging configures the operational logger.
	Logging LoggingConfig `yaml:"logging"`

	// Adaptation configures the selection engine.
	Adaptation AdaptationConfig `yaml:"adaptation"`
}

// AdminConfig configures the admin API listener.
type AdminConfig struct {
	// Addr is the listen address, e.g. ":4280".
	Addr string `yaml:"addr"`

	// APIKey protects the admin API when non-empty (X-API-Key header).
	APIKey string `yaml:"apiKey,omitempty"`
}

// LoggingConfig configures the operational logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AdaptationConfig is the YAML shape of the engine configuration.
type AdaptationConfig struct {
	Weights struct {
		Latency       float64 `yaml:"latency"`
		Throughput    float64 `yaml:"throughput"`
		Reliability   float64 `yaml:"reliability"`
		CPUEfficiency float64 `yaml:"cpuEfficiency"`
		Security      float64 `yaml:"security"`
		Compatibility float64 `yaml:"compatibility"`
		Cost          float64 `yaml:"cost"`
	} `yaml:"weights"`

	PreferEncrypted  bool `yaml:"preferEncrypted"`
	PreferCompressed bool `yaml:"preferCompressed"`

	MinimumPerformanceThreshold float64 `yaml:"minimumPerformanceThreshold"`

	// SwitchCooldownPeriod and EmergencyMinInterval are Go duration strings.
	SwitchCooldownPeriod string `yaml:"switchCooldownPeriod"`
	EmergencyMinInterval string `yaml:"emergencyMinInterval"`

	MaxSwitchFrequency int `yaml:"maxSwitchFrequency"`

	RequiredFlags  []string `yaml:"requiredFlags,omitempty"`
	PreferredFlags []string `yaml:"preferredFlags,omitempty"`

	EligibilityExpr string `yaml:"eligibilityExpr,omitempty"`

	// InitialProtocol and SupportedProtocols use canonical protocol names.
	InitialProtocol    string   `yaml:"initialProtocol"`
	SupportedProtocols []string `yaml:"supportedProtocols,omitempty"`

	HistorySize int `yaml:"historySize"`

	// Characteristics overrides entries of the built-in table, keyed by
	// canonical protocol name.
	Characteristics map[string]protocol.Characteristics `yaml:"characteristics,omitempty"`
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Admin: AdminConfig{Addr: ":4280"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses a YAML configuration file. Unknown fields are
// rejected so typos fail fast instead of being silently dropped.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration bytes on top of the defaults.
func Parse(data []byte) (*File, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document means "all defaults".
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// EngineConfig converts the file's adaptation section into an engine
// configuration, starting from engine defaults so omitted fields keep their
// documented default values.
func (f *File) EngineConfig() (adaptive.Config, error) {
	cfg := adaptive.DefaultConfig()
	a := f.Adaptation

	if a.Weights.Latency != 0 || a.Weights.Throughput != 0 ||
		a.Weights.Reliability != 0 || a.Weights.CPUEfficiency != 0 {
		cfg.Weights = adaptive.Weights{
			Latency:       a.Weights.Latency,
			Throughput:    a.Weights.Throughput,
			Reliability:   a.Weights.Reliability,
			CPUEfficiency: a.Weights.CPUEfficiency,
			Security:      a.Weights.Security,
			Compatibility: a.Weights.Compatibility,
			Cost:          a.Weights.Cost,
		}
	}

	cfg.PreferEncrypted = a.PreferEncrypted
	cfg.PreferCompressed = a.PreferCompressed
	cfg.MinPerformanceThreshold = a.MinimumPerformanceThreshold
	cfg.MaxSwitchFrequency = a.MaxSwitchFrequency
	cfg.EligibilityExpr = a.EligibilityExpr

	if a.SwitchCooldownPeriod != "" {
		d, err := time.ParseDuration(a.SwitchCooldownPeriod)
		if err != nil {
			return cfg, fmt.Errorf("switchCooldownPeriod: %w", err)
		}
		cfg.SwitchCooldown = d
	}
	if a.EmergencyMinInterval != "" {
		d, err := time.ParseDuration(a.EmergencyMinInterval)
		if err != nil {
			return cfg, fmt.Errorf("emergencyMinInterval: %w", err)
		}
		cfg.EmergencyMinInterval = d
	}
	if a.HistorySize != 0 {
		cfg.HistorySize = a.HistorySize
	}

	for _, s := range a.RequiredFlags {
		cfg.RequiredFlags = append(cfg.RequiredFlags, protocol.Flag(s))
	}
	for _, s := range a.PreferredFlags {
		cfg.PreferredFlags = append(cfg.PreferredFlags, protocol.Flag(s))
	}

	if a.InitialProtocol != "" {
		id, err := protocol.Parse(a.InitialProtocol)
		if err != nil {
			return cfg, fmt.Errorf("initialProtocol: %w", err)
		}
		cfg.InitialProtocol = id
	}
	if len(a.SupportedProtocols) > 0 {
		cfg.Supported = cfg.Supported[:0]
		for _, name := range a.SupportedProtocols {
			id, err := protocol.Parse(name)
			if err != nil {
				return cfg, fmt.Errorf("supportedProtocols: %w", err)
			}
			cfg.Supported = append(cfg.Supported, id)
		}
	}

	if len(a.Characteristics) > 0 {
		cfg.Characteristics = make(map[protocol.ID]protocol.Characteristics, len(a.Characteristics))
		for name, c := range a.Characteristics {
			id, err := protocol.Parse(name)
			if err != nil {
				return cfg, fmt.Errorf("characteristics: %w", err)
			}
			cfg.Characteristics[id] = c
		}
	}

	return cfg, nil
}
