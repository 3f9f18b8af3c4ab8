// Package prometheus exposes pinreset engine metrics as a client_golang
// Collector.
//
// [NewCollector] wraps a pinreset.Engine. Register it with any registry, or
// mount [Collector.Handler], which serves it from a private registry.
// Counters are named pinreset_*_total; the request and confirm latency
// histograms are pinreset_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry.
//   - Mutate engine state.
package prometheus
