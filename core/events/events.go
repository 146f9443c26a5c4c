package events

import (
	"time"

	"github.com/kilianp07/responder/core/matching"
	"github.com/kilianp07/responder/core/model"
)

// IncidentReported is published once an incident is stored.
type IncidentReported struct {
	Incident model.Incident
}

// MatchDecided carries the explained outcome of a matching run.
type MatchDecided struct {
	IncidentID string
	Decision   matching.Decision
	Time       time.Time
}

// AssignmentChanged is published when an assignment is created, changes
// status or is removed. Removed assignments have Removed set.
type AssignmentChanged struct {
	Assignment     model.Assignment
	IncidentStatus model.IncidentStatus
	Removed        bool
}
