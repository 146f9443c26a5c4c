package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	matchLatency  *prometheus.HistogramVec
	assignments   *prometheus.CounterVec
	unmatched     *prometheus.CounterVec
	notifySuccess prometheus.Counter
	notifyFailure prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_match_latency_seconds",
			Help:    "Time spent evaluating the responder pool for an incident",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"incident_type"},
	)
	asn := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_assignments_total",
			Help: "Number of assignments created",
		},
		[]string{"trigger"},
	)
	miss := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_unmatched_total",
			Help: "Number of matching runs without a compatible responder",
		},
		[]string{"incident_type"},
	)
	suc := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_notify_success_total",
			Help: "Number of assignment orders delivered",
		},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_notify_failure_total",
			Help: "Number of assignment orders that could not be delivered",
		},
	)
	return lat, asn, miss, suc, fail
}

func init() {
	matchLatency, assignments, unmatched, notifySuccess, notifyFailure = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(matchLatency, assignments, unmatched, notifySuccess, notifyFailure)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	matchLatency, assignments, unmatched, notifySuccess, notifyFailure = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
