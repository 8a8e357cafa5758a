// Package metrics provides a dependency-free counter/gauge registry with
// Prometheus text exposition, plus a collector that exports the adaptive
// engine's statistics.
//
// The registry is deliberately small: the engine's observable surface is a
// handful of counters and per-protocol gauges, and the admin server mounts
// Registry.Handler() at /metrics.
package metrics
