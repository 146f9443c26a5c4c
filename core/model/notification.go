package model

import "time"

// AssignmentOrder is the payload sent to a responder when an assignment is created.
type AssignmentOrder struct {
	AssignmentID string    `json:"assignment_id"`
	IncidentID   string    `json:"incident_id"`
	ResponderID  string    `json:"responder_id"`
	IncidentType string    `json:"incident_type"`
	Severity     Severity  `json:"severity"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	DistanceKm   float64   `json:"distance_km"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewAssignmentOrder builds the order for a stored assignment.
func NewAssignmentOrder(inc Incident, a Assignment, ts time.Time) AssignmentOrder {
	return AssignmentOrder{
		AssignmentID: a.ID,
		IncidentID:   inc.ID,
		ResponderID:  a.ResponderID,
		IncidentType: inc.Type,
		Severity:     inc.Severity,
		Latitude:     inc.Location.Lat,
		Longitude:    inc.Location.Lon,
		DistanceKm:   a.DistanceKm,
		Timestamp:    ts,
	}
}

// StatusUpdate is reported by a responder about one of its assignments.
type StatusUpdate struct {
	IncidentID  string           `json:"incident_id"`
	ResponderID string           `json:"responder_id"`
	Status      AssignmentStatus `json:"status"`
}
