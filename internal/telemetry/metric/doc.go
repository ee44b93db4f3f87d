// Package metric provides Prometheus metrics for tokvault.
//
// Metrics include:
//
//   - Record writes, by encryption
//   - Record reads, by result
//   - Record deletions, by reason
//   - Sweep runs, removals and duration
//
// Storage engine size gauges are registered by the engine itself.
package metric
