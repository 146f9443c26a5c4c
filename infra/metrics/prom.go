package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/responder/core/metrics"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	matches       *prometheus.CounterVec
	distance      *prometheus.HistogramVec
	assignments   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	pool          *prometheus.GaugeVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	matches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "responder_match_attempts_total",
		Help: "Total number of responder matching attempts",
	}, []string{"incident_type", "matched"})
	distance := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "responder_match_distance_km",
		Help:    "Distance between the incident and the selected responder",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50, 100},
	}, []string{"incident_type"})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "responder_assignments_total",
		Help: "Assignment lifecycle transitions",
	}, []string{"status", "manual"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "responder_notifications_total",
		Help: "Assignment notifications sent to responders",
	}, []string{"delivered"})
	pool := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "responder_pool_size",
		Help: "Responders seen by the last match",
	}, []string{"state"})

	var err error
	if matches, err = register(reg, matches); err != nil {
		return nil, err
	}
	if distance, err = register(reg, distance); err != nil {
		return nil, err
	}
	if assignments, err = register(reg, assignments); err != nil {
		return nil, err
	}
	if notifications, err = register(reg, notifications); err != nil {
		return nil, err
	}
	if pool, err = register(reg, pool); err != nil {
		return nil, err
	}
	return &PromSink{matches: matches, distance: distance, assignments: assignments, notifications: notifications, pool: pool}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordMatch counts the attempt and observes the distance of a match.
func (s *PromSink) RecordMatch(ev coremetrics.MatchEvent) error {
	typ := coremetrics.TypeLabel(ev.IncidentType)
	s.matches.WithLabelValues(typ, strconv.FormatBool(ev.Matched)).Inc()
	if ev.Matched {
		s.distance.WithLabelValues(typ).Observe(ev.DistanceKm)
	}
	return nil
}

// RecordAssignment counts assignment transitions.
func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	s.assignments.WithLabelValues(ev.Status, strconv.FormatBool(ev.Manual)).Inc()
	return nil
}

// RecordNotification counts notification deliveries.
func (s *PromSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	s.notifications.WithLabelValues(strconv.FormatBool(ev.Delivered)).Inc()
	return nil
}

// RecordPoolSize sets the pool gauges.
func (s *PromSink) RecordPoolSize(total, active int) error {
	s.pool.WithLabelValues("total").Set(float64(total))
	s.pool.WithLabelValues("active").Set(float64(active))
	return nil
}
