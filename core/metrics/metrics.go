package metrics

import (
	"strings"
	"time"
)

// MatchEvent describes one matching attempt for an incident.
type MatchEvent struct {
	IncidentID   string
	IncidentType string
	Severity     string
	Matched      bool
	ResponderID  string
	DistanceKm   float64
	PoolSize     int
	Candidates   int
	Duration     time.Duration
	Time         time.Time
}

// MetricsSink records match outcomes.
type MetricsSink interface {
	RecordMatch(ev MatchEvent) error
}

// AssignmentEvent is emitted when an assignment is created or changes status.
type AssignmentEvent struct {
	AssignmentID string
	IncidentID   string
	ResponderID  string
	Status       string
	Manual       bool
	Time         time.Time
}

// AssignmentRecorder records assignment lifecycle changes.
type AssignmentRecorder interface {
	RecordAssignment(ev AssignmentEvent) error
}

// NotificationEvent captures the delivery of an assignment order.
type NotificationEvent struct {
	AssignmentID string
	ResponderID  string
	Delivered    bool
	Latency      time.Duration
	Error        string
	Time         time.Time
}

// NotificationRecorder records notification deliveries.
type NotificationRecorder interface {
	RecordNotification(ev NotificationEvent) error
}

// PoolSizeRecorder records the size of the responder pool seen by a match.
type PoolSizeRecorder interface {
	RecordPoolSize(total, active int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordMatch(MatchEvent) error               { return nil }
func (NopSink) RecordAssignment(AssignmentEvent) error     { return nil }
func (NopSink) RecordNotification(NotificationEvent) error { return nil }
func (NopSink) RecordPoolSize(int, int) error              { return nil }

// TypeLabel maps an incident type to a bounded label value: the well known
// types lower-cased, "other" for anything else.
func TypeLabel(t string) string {
	t = strings.ToLower(t)
	switch t {
	case "fire", "medical", "police", "general":
		return t
	}
	return "other"
}
