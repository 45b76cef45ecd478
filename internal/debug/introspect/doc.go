// Package introspect serves a read-only HTTP view of a running
// orchestrator: components, subscriptions, state, recent events and
// metrics. Metrics are also exposed in Prometheus text format at /metrics.
//
// The server is meant for local debugging and only binds to loopback
// addresses; the host refuses anything else at configuration time.
package introspect
