// Package prometheus exposes engine counters through the Prometheus client
// library.
//
// [Exporter] is a prometheus.Collector. Register it on the caller's registry
// or mount [Exporter.Handler]. Counters are named nuggetauth_*_total and the
// validate latency histogram is nuggetauth_validate_latency_seconds.
package prometheus
