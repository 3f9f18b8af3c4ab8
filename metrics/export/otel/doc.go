// Package otel publishes pinreset engine metrics through an OpenTelemetry
// Meter.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter. Each
// latency histogram becomes a cumulative "<name>_bucket" gauge with an "le"
// attribute and a "<name>_count" gauge. One callback reads
// pinreset.Engine.MetricsSnapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
