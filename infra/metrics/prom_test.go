package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/responder/core/metrics"
)

func TestPromSink_RecordMatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordMatch(coremetrics.MatchEvent{IncidentType: "Fire", Matched: true, DistanceKm: 1.4}))
	require.NoError(t, sink.RecordMatch(coremetrics.MatchEvent{IncidentType: "flood", Matched: false}))

	expected := `
# HELP responder_match_attempts_total Total number of responder matching attempts
# TYPE responder_match_attempts_total counter
responder_match_attempts_total{incident_type="fire",matched="true"} 1
responder_match_attempts_total{incident_type="other",matched="false"} 1
`
	if err := testutil.CollectAndCompare(sink.matches, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	assert.Equal(t, 1, testutil.CollectAndCount(sink.distance))
}

func TestPromSink_Recorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordAssignment(coremetrics.AssignmentEvent{Status: "pending"}))
	require.NoError(t, sink.RecordNotification(coremetrics.NotificationEvent{Delivered: true}))
	require.NoError(t, sink.RecordPoolSize(5, 3))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.assignments.WithLabelValues("pending", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.notifications.WithLabelValues("true")))
	assert.Equal(t, 5.0, testutil.ToFloat64(sink.pool.WithLabelValues("total")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.pool.WithLabelValues("active")))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordMatch(coremetrics.MatchEvent{IncidentType: "police", Matched: true}))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.matches.WithLabelValues("police", "true")))
}
