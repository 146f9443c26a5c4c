package dispatch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/responder/core/dispatch/logging"
	"github.com/kilianp07/responder/core/matching"
	"github.com/kilianp07/responder/core/metrics"
	"github.com/kilianp07/responder/core/model"
	"github.com/kilianp07/responder/infra/logger"
	"github.com/kilianp07/responder/infra/store"
)

func ptr(f float64) *float64 { return &f }

func responder(id string, lat, lon float64, active bool, skills ...string) model.Responder {
	return model.Responder{ID: id, Name: id, Latitude: ptr(lat), Longitude: ptr(lon), Active: active, Skills: skills}
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []model.AssignmentOrder
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, o model.AssignmentOrder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, o)
	return n.err
}

func (n *recordingNotifier) Orders() []model.AssignmentOrder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.AssignmentOrder(nil), n.orders...)
}

type memLogs struct {
	mu   sync.Mutex
	recs []logging.LogRecord
}

func (l *memLogs) Append(_ context.Context, rec logging.LogRecord) error {
	l.mu.Lock()
	l.recs = append(l.recs, rec)
	l.mu.Unlock()
	return nil
}

func (l *memLogs) Query(_ context.Context, q logging.LogQuery) ([]logging.LogRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logging.LogRecord
	for _, r := range l.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *memLogs) Close() error { return nil }

type recordingSink struct {
	mu            sync.Mutex
	matches       []metrics.MatchEvent
	assignments   []metrics.AssignmentEvent
	notifications []metrics.NotificationEvent
	pool          [][2]int
}

func (s *recordingSink) RecordMatch(ev metrics.MatchEvent) error {
	s.mu.Lock()
	s.matches = append(s.matches, ev)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) RecordAssignment(ev metrics.AssignmentEvent) error {
	s.mu.Lock()
	s.assignments = append(s.assignments, ev)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) RecordNotification(ev metrics.NotificationEvent) error {
	s.mu.Lock()
	s.notifications = append(s.notifications, ev)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) RecordPoolSize(total, active int) error {
	s.mu.Lock()
	s.pool = append(s.pool, [2]int{total, active})
	s.mu.Unlock()
	return nil
}

type fixture struct {
	mgr      *AssignmentManager
	store    *store.MemoryStore
	notifier *recordingNotifier
	logs     *memLogs
	sink     *recordingSink
}

func newFixture(t *testing.T, auto bool, pool ...model.Responder) fixture {
	t.Helper()
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	st := store.NewMemoryStore()
	for _, r := range pool {
		st.SetResponder(r)
	}
	f := fixture{store: st, notifier: &recordingNotifier{}, logs: &memLogs{}, sink: &recordingSink{}}
	cfg := DefaultConfig()
	cfg.AutoAssign = auto
	mgr, err := NewAssignmentManager(st, matching.Matcher{}, f.notifier, cfg, f.sink, nil, logger.NopLogger{})
	require.NoError(t, err)
	mgr.SetLogStore(f.logs)
	f.mgr = mgr
	return f
}

func (f fixture) report(t *testing.T, typ string, lat, lon float64) model.Incident {
	t.Helper()
	inc, err := f.mgr.Report(context.Background(), ReportRequest{
		Title:    typ + " incident",
		Type:     typ,
		Location: &model.Coordinate{Lat: lat, Lon: lon},
	})
	require.NoError(t, err)
	return inc
}
