package dispatch

import (
	"context"

	"github.com/kilianp07/responder/core/matching"
	"github.com/kilianp07/responder/core/model"
)

// ResponderSource supplies the current responder pool.
type ResponderSource interface {
	Responders(ctx context.Context) ([]model.Responder, error)
	Responder(ctx context.Context, id string) (model.Responder, bool, error)
}

// Store persists incidents and assignments.
type Store interface {
	ResponderSource
	SaveIncident(ctx context.Context, inc model.Incident) error
	Incident(ctx context.Context, id string) (model.Incident, bool, error)
	// Incidents lists incidents with the given status, or all of them when
	// status is empty, ordered by creation time.
	Incidents(ctx context.Context, status model.IncidentStatus) ([]model.Incident, error)
	SaveAssignment(ctx context.Context, a model.Assignment) error
	Assignment(ctx context.Context, incidentID, responderID string) (model.Assignment, bool, error)
	Assignments(ctx context.Context, incidentID string) ([]model.Assignment, error)
	DeleteAssignment(ctx context.Context, incidentID, responderID string) error
}

// Notifier delivers assignment orders to responders.
type Notifier interface {
	Notify(ctx context.Context, order model.AssignmentOrder) error
}

// NopNotifier drops every order.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, model.AssignmentOrder) error { return nil }

// ReportRequest is the input of an incident report. Location may be nil when
// an address is given and a geocoder is configured.
type ReportRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Address     string            `json:"address,omitempty"`
	Location    *model.Coordinate `json:"location,omitempty"`
	Type        string            `json:"type"`
	Severity    model.Severity    `json:"severity,omitempty"`
}

// Outcome is the result of a matching run for one incident.
type Outcome struct {
	Incident   model.Incident    `json:"incident"`
	Assignment *model.Assignment `json:"assignment,omitempty"`
	Decision   matching.Decision `json:"decision"`
	Matched    bool              `json:"matched"`
	Notified   bool              `json:"notified"`
}

// Trigger values recorded in the decision log.
const (
	TriggerReport  = "report"
	TriggerAssign  = "assign"
	TriggerRematch = "rematch"
)
