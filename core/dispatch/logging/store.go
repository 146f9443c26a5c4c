package logging

import (
	"context"
	"strings"
	"time"

	"github.com/kilianp07/responder/core/matching"
	"github.com/kilianp07/responder/core/model"
)

// LogRecord captures one match decision and what the dispatcher did with it.
type LogRecord struct {
	Timestamp    time.Time         `json:"timestamp"`
	IncidentID   string            `json:"incident_id"`
	IncidentType string            `json:"incident_type"`
	Severity     model.Severity    `json:"severity"`
	Location     model.Coordinate  `json:"location"`
	PoolSize     int               `json:"pool_size"`
	Decision     matching.Decision `json:"decision"`
	AssignmentID string            `json:"assignment_id,omitempty"`
	Trigger      string            `json:"trigger"`
}

// ResponderID returns the selected responder or an empty string.
func (r LogRecord) ResponderID() string {
	if r.Decision.Match == nil {
		return ""
	}
	return r.Decision.Match.Responder.ID
}

// LogQuery defines filters for retrieving records. Zero fields do not filter.
type LogQuery struct {
	Start        time.Time
	End          time.Time
	IncidentID   string
	IncidentType string
	ResponderID  string
	Matched      *bool
}

// Match reports whether the record satisfies every filter of q.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.IncidentID != "" && r.IncidentID != q.IncidentID {
		return false
	}
	if q.IncidentType != "" && !strings.EqualFold(r.IncidentType, q.IncidentType) {
		return false
	}
	if q.ResponderID != "" && r.ResponderID() != q.ResponderID {
		return false
	}
	if q.Matched != nil && r.Decision.Matched() != *q.Matched {
		return false
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, LogRecord) error              { return nil }
func (NopStore) Query(context.Context, LogQuery) ([]LogRecord, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }
