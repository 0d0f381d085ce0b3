// Package otel exports goToken metrics through an OpenTelemetry meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter. The
// verify latency histogram becomes a cumulative "_bucket" gauge with an "le"
// attribute per bound and a "_count" gauge. A single callback reads
// Engine.MetricsSnapshot per collection; callers own the MeterProvider.
package otel
