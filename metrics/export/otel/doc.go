// Package otel publishes authgate engine counters through an OpenTelemetry
// Meter.
//
// Each counter becomes an Int64ObservableCounter and each histogram bucket a
// cumulative Int64ObservableGauge. One callback reads the engine snapshot per
// collection cycle. Callers own the MeterProvider.
package otel
