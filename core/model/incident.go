package model

import (
	"fmt"
	"time"
)

// Severity grades an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IncidentStatus is the lifecycle state of an incident.
type IncidentStatus string

const (
	StatusOpen       IncidentStatus = "open"
	StatusAssigned   IncidentStatus = "assigned"
	StatusInProgress IncidentStatus = "in_progress"
	StatusResolved   IncidentStatus = "resolved"
	StatusClosed     IncidentStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s IncidentStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Incident is a reported emergency. Type is free text; well known values are
// "fire", "medical", "police" and "general".
type Incident struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Address     string         `json:"address,omitempty"`
	Location    Coordinate     `json:"location"`
	Type        string         `json:"type"`
	Severity    Severity       `json:"severity"`
	Status      IncidentStatus `json:"status"`
	AssignedTo  string         `json:"assigned_to,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Validate checks the mandatory fields of an incident.
func (i Incident) Validate() error {
	if i.Title == "" {
		return fmt.Errorf("title is required")
	}
	if i.Type == "" {
		return fmt.Errorf("type is required")
	}
	if i.Severity != "" && !i.Severity.Valid() {
		return fmt.Errorf("unknown severity %q", i.Severity)
	}
	if i.Status != "" && !i.Status.Valid() {
		return fmt.Errorf("unknown status %q", i.Status)
	}
	return nil
}
