// Package metrics exports ambient binding and subscription activity to
// Prometheus.
//
// Bindings and subscriptions default to a no-op recorder. Pass a
// PrometheusRecorder through ambient.WithRecorder or
// ambient.WithSubscriptionRecorder to collect:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	b := ambient.NewBinding("theme", ambient.Literal("light"), backend, ambient.WithRecorder(rec))
//
// Key and event names become label values, so they should come from a
// bounded set.
package metrics
