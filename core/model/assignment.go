package model

import "time"

// AssignmentStatus tracks a responder's progress on an incident.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentDeclined  AssignmentStatus = "declined"
	AssignmentCompleted AssignmentStatus = "completed"
)

// Valid reports whether s is a known assignment status.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentPending, AssignmentAccepted, AssignmentDeclined, AssignmentCompleted:
		return true
	}
	return false
}

// Live reports whether the responder is still expected to act.
func (s AssignmentStatus) Live() bool {
	return s == AssignmentPending || s == AssignmentAccepted
}

// Assignment links one responder to one incident.
type Assignment struct {
	ID          string           `json:"id"`
	IncidentID  string           `json:"incident_id"`
	ResponderID string           `json:"responder_id"`
	Status      AssignmentStatus `json:"status"`
	DistanceKm  float64          `json:"distance_km"`
	Manual      bool             `json:"manual,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
