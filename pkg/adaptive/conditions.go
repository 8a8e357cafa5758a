package adaptive

import "time"

// NetworkConditions is an immutable snapshot of measured network state,
// pushed by an external network-monitoring collaborator. Each push replaces
// the previous snapshot wholesale; the engine never partially updates it.
type NetworkConditions struct {
	// BandwidthMbps is the estimated available bandwidth.
	BandwidthMbps float64 `json:"bandwidthMbps" yaml:"bandwidthMbps"`

	// LatencyMs is the measured round-trip latency in milliseconds.
	LatencyMs float64 `json:"latencyMs" yaml:"latencyMs"`

	// PacketLossPct is the measured packet loss percentage (0-100).
	PacketLossPct float64 `json:"packetLossPct" yaml:"packetLossPct"`

	// JitterMs is the measured latency variation in milliseconds.
	JitterMs float64 `json:"jitterMs" yaml:"jitterMs"`

	// MTU is the path MTU in bytes, 0 if unknown.
	MTU int `json:"mtu,omitempty" yaml:"mtu,omitempty"`

	// IsMobile indicates the underlying link is a mobile network.
	IsMobile bool `json:"isMobile" yaml:"isMobile"`

	// IsCongested indicates the path is currently congested.
	IsCongested bool `json:"isCongested" yaml:"isCongested"`

	// CapturedAt is when the sample was taken.
	CapturedAt time.Time `json:"capturedAt" yaml:"capturedAt"`
}
