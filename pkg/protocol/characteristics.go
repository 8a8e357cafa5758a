package protocol

// Flag names a single qualitative protocol characteristic.
// Flags drive eligibility filtering (required flags) and condition-based
// scoring bonuses; selection logic never special-cases protocol identity.
type Flag string

// Characteristic flags.
const (
	FlagLowLatency          Flag = "low_latency"
	FlagHighThroughput      Flag = "high_throughput"
	FlagEncrypted           Flag = "encrypted"
	FlagCompressed          Flag = "compressed"
	FlagConnectionless      Flag = "connectionless"
	FlagConnectionOriented  Flag = "connection_oriented"
	FlagReliable            Flag = "reliable"
	FlagStreaming           Flag = "streaming"
	FlagMobileOptimized     Flag = "mobile_optimized"
	FlagCongestionOptimized Flag = "congestion_optimized"
)

// String returns the string representation of the flag.
func (f Flag) String() string {
	return string(f)
}

// ValidFlag reports whether f is a recognized characteristic flag.
func ValidFlag(f Flag) bool {
	switch f {
	case FlagLowLatency, FlagHighThroughput, FlagEncrypted, FlagCompressed,
		FlagConnectionless, FlagConnectionOriented, FlagReliable,
		FlagStreaming, FlagMobileOptimized, FlagCongestionOptimized:
		return true
	}
	return false
}

// Characteristics describes the qualitative properties of a protocol.
type Characteristics struct {
	LowLatency          bool `json:"lowLatency" yaml:"lowLatency"`
	HighThroughput      bool `json:"highThroughput" yaml:"highThroughput"`
	Encrypted           bool `json:"encrypted" yaml:"encrypted"`
	Compressed          bool `json:"compressed" yaml:"compressed"`
	Connectionless      bool `json:"connectionless" yaml:"connectionless"`
	ConnectionOriented  bool `json:"connectionOriented" yaml:"connectionOriented"`
	Reliable            bool `json:"reliable" yaml:"reliable"`
	Streaming           bool `json:"streaming" yaml:"streaming"`
	MobileOptimized     bool `json:"mobileOptimized" yaml:"mobileOptimized"`
	CongestionOptimized bool `json:"congestionOptimized" yaml:"congestionOptimized"`
}

// Has reports whether the characteristic named by f is set.
func (c Characteristics) Has(f Flag) bool {
	switch f {
	case FlagLowLatency:
		return c.LowLatency
	case FlagHighThroughput:
		return c.HighThroughput
	case FlagEncrypted:
		return c.Encrypted
	case FlagCompressed:
		return c.Compressed
	case FlagConnectionless:
		return c.Connectionless
	case FlagConnectionOriented:
		return c.ConnectionOriented
	case FlagReliable:
		return c.Reliable
	case FlagStreaming:
		return c.Streaming
	case FlagMobileOptimized:
		return c.MobileOptimized
	case FlagCongestionOptimized:
		return c.CongestionOptimized
	}
	return false
}

// HasAll reports whether every flag in flags is set.
func (c Characteristics) HasAll(flags []Flag) bool {
	for _, f := range flags {
		if !c.Has(f) {
			return false
		}
	}
	return true
}

// DefaultCharacteristics returns the built-in characteristics table with an
// entry for every member of the closed protocol set. Hosts may override
// individual entries through configuration.
func DefaultCharacteristics() map[ID]Characteristics {
	return map[ID]Characteristics{
		LegacyV1: {
			ConnectionOriented: true,
			Reliable:           true,
		},
		LegacyV2: {
			Encrypted:          true,
			ConnectionOriented: true,
			Reliable:           true,
		},
		LegacyV3: {
			LowLatency:         true,
			Encrypted:          true,
			ConnectionOriented: true,
			Reliable:           true,
		},
		HTTPProxy: {
			ConnectionOriented: true,
			Reliable:           true,
			Compressed:         true,
		},
		SOCKS5: {
			LowLatency:         true,
			ConnectionOriented: true,
			Reliable:           true,
		},
		Shadowsocks: {
			Encrypted:          true,
			Compressed:         true,
			ConnectionOriented: true,
			Reliable:           true,
		},
		WebSocket: {
			Encrypted:          true,
			ConnectionOriented: true,
			Reliable:           true,
			Streaming:          true,
			MobileOptimized:    true,
		},
		QUIC: {
			LowLatency:          true,
			HighThroughput:      true,
			Encrypted:           true,
			Connectionless:      true,
			Reliable:            true,
			Streaming:           true,
			MobileOptimized:     true,
			CongestionOptimized: true,
		},
		TLSProxy: {
			Encrypted:          true,
			ConnectionOriented: true,
			Reliable:           true,
			HighThroughput:     true,
		},
		ObliviousHTTP: {
			Encrypted:          true,
			ConnectionOriented: true,
			Reliable:           true,
		},
	}
}
