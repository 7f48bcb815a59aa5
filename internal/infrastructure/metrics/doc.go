// Package metrics exposes Prometheus metrics for the climate skill:
// request outcomes, per-action dispatch results and latency, registry
// size, and HTTP API traffic.
package metrics
