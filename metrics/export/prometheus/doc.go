// Package prometheus exposes goToken metrics through client_golang.
//
// [PrometheusExporter] implements prometheus.Collector: register it with any
// registry, or mount [PrometheusExporter.Handler], which serves it from a
// private one. Counters are named gotoken_*_total; the single histogram is
// gotoken_verify_latency_seconds.
package prometheus
