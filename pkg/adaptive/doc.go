// Package adaptive implements the proxy's protocol selection and switching
// engine. It continuously picks, among the interchangeable wire protocols in
// pkg/protocol, the one best suited to measured performance and current
// network conditions, and transitions between them without oscillation.
//
// The engine is a pure control-plane component: it consumes pushed
// NetworkConditions samples and per-protocol PerformanceRecord telemetry and
// emits SwitchDecision values. A transport-adapter collaborator subscribes to
// decisions and performs the actual teardown and bring-up; the engine itself
// never touches the network.
//
// # Selection
//
// Each performance update recomputes a cached efficiency score — a weighted
// combination of latency, throughput, reliability and CPU cost. Evaluate
// multiplies the cached score by condition-driven bonuses (mobile, congestion,
// preference flags) and the configured weight mass, filters candidates by
// client support, required characteristics and the minimum threshold, and
// compares the best candidate against the active protocol.
//
// # Switching without oscillation
//
// Ordinary switches honor a cooldown and an optional per-minute budget, both
// re-checked at execute time so they hold even for direct Execute callers.
// Explicit failure signals on the active protocol force an immediate switch
// that bypasses the cooldown but is governed by its own stricter rate limit;
// a suppressed emergency is surfaced as ErrEmergencySuppressed, never
// silently dropped.
package adaptive
