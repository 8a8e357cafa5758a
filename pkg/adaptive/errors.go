package adaptive

// Error is a simple error type for engine errors.
// It allows defining sentinel errors as constants.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors for engine operations. Callers distinguish degraded states
// (ErrNoViableProtocol, ErrEmergencySuppressed) from ordinary no-op decisions
// by checking for these values with errors.Is.
var (
	// ErrInvalidConfig is returned by New when the supplied configuration
	// fails validation. The engine is not constructed.
	ErrInvalidConfig = Error("invalid engine configuration")

	// ErrClosed is returned when an operation is invoked on an engine
	// that has been torn down with Close.
	ErrClosed = Error("engine is closed")

	// ErrUnknownProtocol is returned when an update or decision references
	// a protocol outside the closed set.
	ErrUnknownProtocol = Error("unknown protocol")

	// ErrUnsupportedProtocol is returned by Execute when a decision targets
	// a protocol the peer does not support. Support is never bypassed, not
	// even for emergency decisions.
	ErrUnsupportedProtocol = Error("protocol not supported by peer")

	// ErrStaleDecision is returned by Execute when a decision was produced
	// against a protocol that is no longer active.
	ErrStaleDecision = Error("decision is stale")

	// ErrCooldownActive is returned by Execute when the switch cooldown has
	// not elapsed and the decision is not an emergency. The decision can
	// simply be retried later.
	ErrCooldownActive = Error("switch cooldown has not elapsed")

	// ErrNoViableProtocol is returned when evaluation finds no eligible
	// candidate above the minimum performance threshold. The engine stays
	// on the current protocol; this is not fatal but callers may want to
	// alert on it if it persists.
	ErrNoViableProtocol = Error("no viable protocol candidate")

	// ErrEmergencySuppressed is returned when an emergency switch is
	// requested inside the emergency rate-limit window. The engine remains
	// on the failing protocol.
	ErrEmergencySuppressed = Error("emergency switch suppressed by rate limit")
)
