// Package metrics provides observability hooks for site compilation.
//
// The package implements the Null Object pattern: components receive a
// Recorder through dependency injection and default to NoopRecorder, so
// callers never nil-check before recording. Enabling real metrics is a
// matter of swapping the implementation:
//
//	// Default: no metrics
//	c := compile.NewCompiler(site, rules)
//
//	// When Prometheus is configured
//	reg := prometheus.NewRegistry()
//	c.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// The PrometheusRecorder exposes per-filter durations, compile outcomes,
// data source load times and output write statuses. HTTPHandler serves the
// registry for the preview server when metrics are switched on.
package metrics
