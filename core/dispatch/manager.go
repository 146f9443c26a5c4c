package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/responder/core/dispatch/logging"
	"github.com/kilianp07/responder/core/events"
	"github.com/kilianp07/responder/core/geo"
	"github.com/kilianp07/responder/core/geocode"
	"github.com/kilianp07/responder/core/logger"
	"github.com/kilianp07/responder/core/matching"
	"github.com/kilianp07/responder/core/metrics"
	"github.com/kilianp07/responder/core/model"
	"github.com/kilianp07/responder/internal/eventbus"
)

// AssignmentManager drives incidents from intake to resolution.
type AssignmentManager struct {
	store    Store
	matcher  matching.Matcher
	notifier Notifier
	geocoder geocode.Geocoder
	cfg      Config
	logger   logger.Logger
	metrics  metrics.MetricsSink
	bus      eventbus.EventBus
	logs     logging.LogStore
	now      func() time.Time
	mu       sync.Mutex
}

// NewAssignmentManager creates a new manager. Only store is mandatory; nil
// collaborators are replaced by no-op implementations.
func NewAssignmentManager(store Store, matcher matching.Matcher, notifier Notifier, cfg Config, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*AssignmentManager, error) {
	if store == nil {
		return nil, fmt.Errorf("dispatch: nil store provided to NewAssignmentManager")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = nopLogger{}
	}
	cfg.SetDefaults()
	return &AssignmentManager{
		store:    store,
		matcher:  matcher,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
		metrics:  sink,
		bus:      bus,
		logs:     logging.NopStore{},
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetLogStore configures the store used to persist match decisions.
func (m *AssignmentManager) SetLogStore(store logging.LogStore) {
	if store == nil {
		store = logging.NopStore{}
	}
	m.mu.Lock()
	m.logs = store
	m.mu.Unlock()
}

// SetGeocoder configures address resolution for reports without coordinates.
func (m *AssignmentManager) SetGeocoder(g geocode.Geocoder) {
	m.mu.Lock()
	m.geocoder = g
	m.mu.Unlock()
}

// Close releases resources held by the manager.
func (m *AssignmentManager) Close() error {
	if m.bus != nil {
		m.bus.Close()
	}
	return m.logs.Close()
}

// Incident returns a stored incident.
func (m *AssignmentManager) Incident(ctx context.Context, id string) (model.Incident, error) {
	return m.incident(ctx, id)
}

// Assignments lists the assignments of an incident.
func (m *AssignmentManager) Assignments(ctx context.Context, incidentID string) ([]model.Assignment, error) {
	if _, err := m.incident(ctx, incidentID); err != nil {
		return nil, err
	}
	return m.store.Assignments(ctx, incidentID)
}

// Report validates and stores a new incident. With AutoAssign enabled the
// incident is matched immediately; a failed or empty match leaves it open.
func (m *AssignmentManager) Report(ctx context.Context, req ReportRequest) (model.Incident, error) {
	now := m.now()
	inc := model.Incident{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Address:     req.Address,
		Type:        req.Type,
		Severity:    req.Severity,
		Status:      model.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if inc.Severity == "" {
		inc.Severity = model.SeverityMedium
	}
	if err := inc.Validate(); err != nil {
		return model.Incident{}, fmt.Errorf("%w: %v", ErrInvalidIncident, err)
	}

	m.mu.Lock()
	g := m.geocoder
	m.mu.Unlock()
	switch {
	case req.Location != nil:
		inc.Location = *req.Location
	case strings.TrimSpace(req.Address) != "" && g != nil:
		c, err := g.Geocode(ctx, req.Address)
		if err != nil {
			return model.Incident{}, fmt.Errorf("dispatch: geocode incident: %w", err)
		}
		inc.Location = c
	default:
		return model.Incident{}, fmt.Errorf("%w: location or geocodable address required", ErrInvalidIncident)
	}
	if !inc.Location.Valid() {
		m.logger.Warnf("incident %s has out of range coordinate %.6f,%.6f", inc.ID, inc.Location.Lat, inc.Location.Lon)
	}

	if err := m.store.SaveIncident(ctx, inc); err != nil {
		return model.Incident{}, fmt.Errorf("dispatch: save incident: %w", err)
	}
	m.publish(events.IncidentReported{Incident: inc})
	m.logger.Infow("incident reported", map[string]any{
		"incident_id": inc.ID,
		"type":        inc.Type,
		"severity":    string(inc.Severity),
	})

	if !m.cfg.AutoAssign {
		return inc, nil
	}
	out, err := m.assign(ctx, inc.ID, TriggerReport)
	if err != nil {
		m.logger.Errorf("auto assign %s: %v", inc.ID, err)
		return inc, nil
	}
	return out.Incident, nil
}

// Assign matches an open incident against the current responder pool.
// Finding no responder is not an error: the outcome has Matched unset and
// the incident stays open.
func (m *AssignmentManager) Assign(ctx context.Context, incidentID string) (Outcome, error) {
	return m.assign(ctx, incidentID, TriggerAssign)
}

func (m *AssignmentManager) assign(ctx context.Context, incidentID, trigger string) (Outcome, error) {
	m.mu.Lock()
	inc, err := m.incident(ctx, incidentID)
	if err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}
	if inc.Status != model.StatusOpen {
		m.mu.Unlock()
		return Outcome{}, fmt.Errorf("dispatch: incident %s is %s: %w", inc.ID, inc.Status, ErrIncidentNotOpen)
	}
	pool, err := m.pool(ctx, inc.ID)
	if err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}

	start := time.Now()
	dec := m.matcher.Evaluate(inc.Location, inc.Type, pool)
	elapsed := time.Since(start)

	out := Outcome{Incident: inc, Decision: dec, Matched: dec.Matched()}
	if out.Matched {
		a := m.newAssignment(inc.ID, dec.Match.Responder.ID, dec.Match.DistanceKm, false)
		inc.Status = model.StatusAssigned
		inc.AssignedTo = a.ResponderID
		inc.UpdatedAt = a.CreatedAt
		if err := m.commit(ctx, inc, a); err != nil {
			m.mu.Unlock()
			return Outcome{}, err
		}
		out.Incident = inc
		out.Assignment = &a
	}
	logs := m.logs
	m.mu.Unlock()

	m.recordMatch(inc, dec, len(pool), elapsed)
	if out.Matched {
		assignments.WithLabelValues(trigger).Inc()
		m.logger.Infow("responder assigned", map[string]any{
			"incident_id":  inc.ID,
			"responder_id": out.Assignment.ResponderID,
			"distance_km":  out.Assignment.DistanceKm,
			"trigger":      trigger,
		})
		out.Notified = m.notify(ctx, inc, *out.Assignment)
		m.recordAssignment(*out.Assignment, inc.Status)
	} else {
		unmatched.WithLabelValues(metrics.TypeLabel(inc.Type)).Inc()
		m.logger.Infof("no compatible responder for incident %s (%s), %d in pool", inc.ID, inc.Type, len(pool))
	}

	rec := logging.LogRecord{
		Timestamp:    m.now(),
		IncidentID:   inc.ID,
		IncidentType: inc.Type,
		Severity:     inc.Severity,
		Location:     inc.Location,
		PoolSize:     len(pool),
		Decision:     dec,
		Trigger:      trigger,
	}
	if out.Assignment != nil {
		rec.AssignmentID = out.Assignment.ID
	}
	if err := logs.Append(ctx, rec); err != nil {
		m.logger.Errorf("decision log: %v", err)
	}
	m.publish(events.MatchDecided{IncidentID: inc.ID, Decision: dec, Time: rec.Timestamp})
	return out, nil
}

// AssignResponder assigns a responder chosen by a dispatcher. An open
// incident moves to assigned; other live states are left untouched.
func (m *AssignmentManager) AssignResponder(ctx context.Context, incidentID, responderID string) (model.Assignment, error) {
	m.mu.Lock()
	inc, err := m.incident(ctx, incidentID)
	if err != nil {
		m.mu.Unlock()
		return model.Assignment{}, err
	}
	if inc.Status == model.StatusResolved || inc.Status == model.StatusClosed {
		m.mu.Unlock()
		return model.Assignment{}, fmt.Errorf("dispatch: incident %s is %s: %w", inc.ID, inc.Status, ErrIncidentNotOpen)
	}
	r, ok, err := m.store.Responder(ctx, responderID)
	if err != nil {
		m.mu.Unlock()
		return model.Assignment{}, fmt.Errorf("dispatch: load responder %s: %w", responderID, err)
	}
	if !ok {
		m.mu.Unlock()
		return model.Assignment{}, fmt.Errorf("dispatch: responder %s: %w", responderID, ErrResponderNotFound)
	}
	if _, exists, err := m.store.Assignment(ctx, inc.ID, r.ID); err != nil {
		m.mu.Unlock()
		return model.Assignment{}, fmt.Errorf("dispatch: load assignment: %w", err)
	} else if exists {
		m.mu.Unlock()
		return model.Assignment{}, fmt.Errorf("dispatch: responder %s on incident %s: %w", r.ID, inc.ID, ErrAlreadyAssigned)
	}

	var dist float64
	if pos, ok := r.Position(); ok {
		dist = geo.Distance(inc.Location, pos)
	}
	a := m.newAssignment(inc.ID, r.ID, dist, true)
	if inc.Status == model.StatusOpen {
		inc.Status = model.StatusAssigned
	}
	if inc.AssignedTo == "" {
		inc.AssignedTo = r.ID
	}
	inc.UpdatedAt = a.CreatedAt
	if err := m.commit(ctx, inc, a); err != nil {
		m.mu.Unlock()
		return model.Assignment{}, err
	}
	m.mu.Unlock()

	assignments.WithLabelValues("manual").Inc()
	m.logger.Infof("responder %s manually assigned to incident %s", r.ID, inc.ID)
	m.notify(ctx, inc, a)
	m.recordAssignment(a, inc.Status)
	return a, nil
}

// Unassign removes a responder from an incident. An assigned incident with
// no remaining assignment returns to open.
func (m *AssignmentManager) Unassign(ctx context.Context, incidentID, responderID string) error {
	m.mu.Lock()
	inc, err := m.incident(ctx, incidentID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	a, err := m.assignment(ctx, inc.ID, responderID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.store.DeleteAssignment(ctx, inc.ID, responderID); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("dispatch: delete assignment: %w", err)
	}
	remaining, err := m.store.Assignments(ctx, inc.ID)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("dispatch: list assignments: %w", err)
	}
	changed := false
	if len(remaining) == 0 && inc.Status == model.StatusAssigned {
		inc.Status = model.StatusOpen
		changed = true
	}
	if inc.AssignedTo == responderID {
		inc.AssignedTo = ""
		if len(remaining) > 0 {
			inc.AssignedTo = remaining[0].ResponderID
		}
		changed = true
	}
	if changed {
		inc.UpdatedAt = m.now()
		if err := m.store.SaveIncident(ctx, inc); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("dispatch: save incident: %w", err)
		}
	}
	m.mu.Unlock()

	m.logger.Infof("responder %s removed from incident %s", responderID, inc.ID)
	m.publish(events.AssignmentChanged{Assignment: a, IncidentStatus: inc.Status, Removed: true})
	if rec, ok := m.metrics.(metrics.AssignmentRecorder); ok {
		ev := metrics.AssignmentEvent{AssignmentID: a.ID, IncidentID: a.IncidentID, ResponderID: a.ResponderID, Status: "removed", Manual: a.Manual, Time: m.now()}
		if err := rec.RecordAssignment(ev); err != nil {
			m.logger.Errorf("assignment metrics error: %v", err)
		}
	}
	return nil
}

// UpdateResponderStatus applies a responder's status report and moves the
// incident accordingly.
func (m *AssignmentManager) UpdateResponderStatus(ctx context.Context, incidentID, responderID string, status model.AssignmentStatus) (model.Assignment, error) {
	if !status.Valid() {
		return model.Assignment{}, fmt.Errorf("dispatch: status %q: %w", status, ErrInvalidStatus)
	}
	m.mu.Lock()
	inc, err := m.incident(ctx, incidentID)
	if err != nil {
		m.mu.Unlock()
		return model.Assignment{}, err
	}
	a, err := m.assignment(ctx, inc.ID, responderID)
	if err != nil {
		m.mu.Unlock()
		return model.Assignment{}, err
	}
	now := m.now()
	a.Status = status
	a.UpdatedAt = now
	if err := m.store.SaveAssignment(ctx, a); err != nil {
		m.mu.Unlock()
		return model.Assignment{}, fmt.Errorf("dispatch: save assignment: %w", err)
	}
	all, err := m.store.Assignments(ctx, inc.ID)
	if err != nil {
		m.mu.Unlock()
		return model.Assignment{}, fmt.Errorf("dispatch: list assignments: %w", err)
	}
	if next := nextIncidentStatus(inc, status, all); next != inc.Status {
		inc.Status = next
		if next == model.StatusOpen {
			inc.AssignedTo = ""
		}
		inc.UpdatedAt = now
		if err := m.store.SaveIncident(ctx, inc); err != nil {
			m.mu.Unlock()
			return model.Assignment{}, fmt.Errorf("dispatch: save incident: %w", err)
		}
		m.logger.Infof("incident %s moved to %s", inc.ID, next)
	}
	m.mu.Unlock()

	m.recordAssignment(a, inc.Status)
	return a, nil
}

// nextIncidentStatus derives the incident status after an assignment moved
// to status. all includes the updated assignment. An incident resolves once
// every assignment that was not declined is completed.
func nextIncidentStatus(inc model.Incident, status model.AssignmentStatus, all []model.Assignment) model.IncidentStatus {
	switch status {
	case model.AssignmentAccepted:
		if inc.Status == model.StatusAssigned {
			return model.StatusInProgress
		}
	case model.AssignmentCompleted:
		if inc.Status == model.StatusClosed {
			return inc.Status
		}
		// Declined assignments stay as rematch exclusions and do not block.
		completed := 0
		for _, a := range all {
			switch a.Status {
			case model.AssignmentCompleted:
				completed++
			case model.AssignmentDeclined:
			default:
				return inc.Status
			}
		}
		if completed == 0 {
			return inc.Status
		}
		return model.StatusResolved
	case model.AssignmentDeclined:
		if inc.Status != model.StatusAssigned && inc.Status != model.StatusInProgress {
			return inc.Status
		}
		for _, a := range all {
			if a.Status.Live() {
				return inc.Status
			}
		}
		return model.StatusOpen
	}
	return inc.Status
}

// Run applies status updates until the context is canceled or the channel
// is closed.
func (m *AssignmentManager) Run(ctx context.Context, updates <-chan model.StatusUpdate) {
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			if _, err := m.UpdateResponderStatus(ctx, u.IncidentID, u.ResponderID, u.Status); err != nil {
				m.logger.Warnf("status update %s/%s: %v", u.IncidentID, u.ResponderID, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *AssignmentManager) incident(ctx context.Context, id string) (model.Incident, error) {
	inc, ok, err := m.store.Incident(ctx, id)
	if err != nil {
		return model.Incident{}, fmt.Errorf("dispatch: load incident %s: %w", id, err)
	}
	if !ok {
		return model.Incident{}, fmt.Errorf("dispatch: incident %s: %w", id, ErrIncidentNotFound)
	}
	return inc, nil
}

func (m *AssignmentManager) assignment(ctx context.Context, incidentID, responderID string) (model.Assignment, error) {
	a, ok, err := m.store.Assignment(ctx, incidentID, responderID)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("dispatch: load assignment: %w", err)
	}
	if !ok {
		return model.Assignment{}, fmt.Errorf("dispatch: responder %s on incident %s: %w", responderID, incidentID, ErrAssignmentNotFound)
	}
	return a, nil
}

// pool returns the responders that may still be matched to the incident.
// Responders that already hold an assignment for it, declined ones
// included, are left out.
func (m *AssignmentManager) pool(ctx context.Context, incidentID string) ([]model.Responder, error) {
	all, err := m.store.Responders(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load responders: %w", err)
	}
	existing, err := m.store.Assignments(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: list assignments: %w", err)
	}
	if rec, ok := m.metrics.(metrics.PoolSizeRecorder); ok {
		active := 0
		for _, r := range all {
			if r.Active {
				active++
			}
		}
		if err := rec.RecordPoolSize(len(all), active); err != nil {
			m.logger.Errorf("pool size metrics error: %v", err)
		}
	}
	if len(existing) == 0 {
		return all, nil
	}
	skip := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		skip[a.ResponderID] = struct{}{}
	}
	pool := make([]model.Responder, 0, len(all))
	for _, r := range all {
		if _, ok := skip[r.ID]; ok {
			continue
		}
		pool = append(pool, r)
	}
	return pool, nil
}

func (m *AssignmentManager) newAssignment(incidentID, responderID string, dist float64, manual bool) model.Assignment {
	now := m.now()
	return model.Assignment{
		ID:          uuid.NewString(),
		IncidentID:  incidentID,
		ResponderID: responderID,
		Status:      model.AssignmentPending,
		DistanceKm:  dist,
		Manual:      manual,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// commit stores the assignment then the incident, removing the assignment
// again when the incident cannot be saved.
func (m *AssignmentManager) commit(ctx context.Context, inc model.Incident, a model.Assignment) error {
	if err := m.store.SaveAssignment(ctx, a); err != nil {
		return fmt.Errorf("dispatch: save assignment: %w", err)
	}
	if err := m.store.SaveIncident(ctx, inc); err != nil {
		if derr := m.store.DeleteAssignment(ctx, a.IncidentID, a.ResponderID); derr != nil {
			err = errors.Join(err, derr)
		}
		return fmt.Errorf("dispatch: save incident: %w", err)
	}
	return nil
}

// notify sends the order and reports whether it was delivered. Failures are
// logged and counted only.
func (m *AssignmentManager) notify(ctx context.Context, inc model.Incident, a model.Assignment) bool {
	nctx, cancel := context.WithTimeout(ctx, m.cfg.NotifyTimeout())
	defer cancel()
	start := time.Now()
	err := m.notifier.Notify(nctx, model.NewAssignmentOrder(inc, a, m.now()))
	latency := time.Since(start)
	if err != nil {
		notifyFailure.Inc()
		m.logger.Errorf("notify responder %s for incident %s: %v", a.ResponderID, inc.ID, err)
	} else {
		notifySuccess.Inc()
	}
	if rec, ok := m.metrics.(metrics.NotificationRecorder); ok {
		ev := metrics.NotificationEvent{AssignmentID: a.ID, ResponderID: a.ResponderID, Delivered: err == nil, Latency: latency, Time: m.now()}
		if err != nil {
			ev.Error = err.Error()
		}
		if rerr := rec.RecordNotification(ev); rerr != nil {
			m.logger.Errorf("notification metrics error: %v", rerr)
		}
	}
	return err == nil
}

func (m *AssignmentManager) recordMatch(inc model.Incident, dec matching.Decision, poolSize int, elapsed time.Duration) {
	matchLatency.WithLabelValues(metrics.TypeLabel(inc.Type)).Observe(elapsed.Seconds())
	ev := metrics.MatchEvent{
		IncidentID:   inc.ID,
		IncidentType: inc.Type,
		Severity:     string(inc.Severity),
		Matched:      dec.Matched(),
		PoolSize:     poolSize,
		Candidates:   dec.Summary.Candidates,
		Duration:     elapsed,
		Time:         m.now(),
	}
	if dec.Match != nil {
		ev.ResponderID = dec.Match.Responder.ID
		ev.DistanceKm = dec.Match.DistanceKm
	}
	if err := m.metrics.RecordMatch(ev); err != nil {
		m.logger.Errorf("match metrics error: %v", err)
	}
}

func (m *AssignmentManager) recordAssignment(a model.Assignment, status model.IncidentStatus) {
	m.publish(events.AssignmentChanged{Assignment: a, IncidentStatus: status})
	rec, ok := m.metrics.(metrics.AssignmentRecorder)
	if !ok {
		return
	}
	ev := metrics.AssignmentEvent{
		AssignmentID: a.ID,
		IncidentID:   a.IncidentID,
		ResponderID:  a.ResponderID,
		Status:       string(a.Status),
		Manual:       a.Manual,
		Time:         m.now(),
	}
	if err := rec.RecordAssignment(ev); err != nil {
		m.logger.Errorf("assignment metrics error: %v", err)
	}
}

func (m *AssignmentManager) publish(e eventbus.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Infow(string, map[string]any)  {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
