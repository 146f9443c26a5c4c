// Package metrics defines the observability contract of the dispatcher.
//
// A MetricsSink receives one MatchEvent per matching attempt. Sinks may also
// implement the optional recorder interfaces (AssignmentRecorder,
// NotificationRecorder, PoolSizeRecorder); callers type-assert before use.
// Sinks are built from configuration through NewMetricsSink, which returns a
// MultiSink when several are configured.
package metrics
