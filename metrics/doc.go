// Package metrics exports tutoring session metrics to Prometheus.
//
// Collector implements core.Observer, so passing it to the runner is enough
// to record node activations, tool results, protocol violations, handoff
// waits and session outcomes. It also offers an HTTP middleware for the api
// package and the /metrics handler.
package metrics
