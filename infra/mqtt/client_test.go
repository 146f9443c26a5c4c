package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/responder/core/model"
	"github.com/kilianp07/responder/infra/logger"
)

func newTestNotifier(t *testing.T, mc *mockClient, cfg Config) *Notifier {
	t.Helper()
	useMock(t, mc)
	if cfg.Broker == "" {
		cfg.Broker = "tcp://localhost:1883"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "id"
	}
	n, err := NewNotifier(cfg, logger.NopLogger{})
	require.NoError(t, err)
	return n
}

func order() model.AssignmentOrder {
	return model.AssignmentOrder{
		AssignmentID: "a-1",
		IncidentID:   "inc-1",
		ResponderID:  "r-7",
		IncidentType: "fire",
		Severity:     model.SeverityHigh,
		Latitude:     19.1248,
		Longitude:    72.8485,
		DistanceKm:   1.2,
		Timestamp:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNotify_PayloadAndQoS(t *testing.T) {
	mc := &mockClient{}
	n := newTestNotifier(t, mc, Config{QoS: map[string]byte{"assignment": 2, "status": 0}})

	require.Len(t, mc.subscribed, 1)
	assert.Equal(t, DefaultStatusTopic, mc.subscribed[0].topic)
	assert.Equal(t, byte(0), mc.subscribed[0].qos)

	require.NoError(t, n.Notify(context.Background(), order()))
	require.Len(t, mc.published, 1)
	p := mc.published[0]
	assert.Equal(t, "responder/r-7/assignment", p.topic)
	assert.Equal(t, byte(2), p.qos)

	var m map[string]any
	require.NoError(t, json.Unmarshal(p.payload, &m))
	for _, k := range []string{"assignment_id", "incident_id", "responder_id", "incident_type", "severity", "latitude", "longitude", "distance_km", "timestamp"} {
		assert.Contains(t, m, k)
	}
	assert.Equal(t, "high", m["severity"])
	assert.Equal(t, "2024-01-02T03:04:05Z", m["timestamp"])
}

func TestNotify_CustomTopic(t *testing.T) {
	mc := &mockClient{}
	n := newTestNotifier(t, mc, Config{AssignmentTopic: "city/%s/orders", StatusTopic: "city/+/state"})
	require.NoError(t, n.Notify(context.Background(), order()))
	assert.Equal(t, "city/r-7/orders", mc.published[0].topic)
	assert.Equal(t, "city/+/state", mc.subscribed[0].topic)
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	n := newTestNotifier(t, mc, Config{MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, n.Notify(context.Background(), order()))
	assert.Len(t, mc.published, 2)
}

func TestRetryExhausted(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	n := newTestNotifier(t, mc, Config{MaxRetries: 2, BackoffMS: 1})
	err := n.Notify(context.Background(), order())
	assert.ErrorIs(t, err, fail)
	assert.Len(t, mc.published, 3)
}

func TestNotify_ContextDeadline(t *testing.T) {
	mc := &mockClient{pending: true}
	n := newTestNotifier(t, mc, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Notify(ctx, order()), context.DeadlineExceeded)
}

func TestOnStatus(t *testing.T) {
	mc := &mockClient{}
	n := newTestNotifier(t, mc, Config{})
	require.NotNil(t, mc.handler)

	mc.handler(nil, mockMessage{topic: "responder/r-1/status", p: []byte(`{"incident_id":"inc-1","status":"accepted"}`)})
	mc.handler(nil, mockMessage{topic: "responder/r-2/status", p: []byte(`{"incident_id":"inc-1","responder_id":"r-9","status":"completed"}`)})
	mc.handler(nil, mockMessage{topic: "responder/r-3/status", p: []byte(`not json`)})
	mc.handler(nil, mockMessage{topic: "responder/r-3/status", p: []byte(`{"incident_id":"inc-1","status":"lost"}`)})
	mc.handler(nil, mockMessage{topic: "responder/r-3/status", p: []byte(`{"status":"accepted"}`)})

	got := []model.StatusUpdate{<-n.Updates(), <-n.Updates()}
	assert.Equal(t, model.StatusUpdate{IncidentID: "inc-1", ResponderID: "r-1", Status: model.AssignmentAccepted}, got[0])
	assert.Equal(t, "r-9", got[1].ResponderID)

	n.Disconnect()
	_, ok := <-n.Updates()
	assert.False(t, ok)
	// late deliveries after disconnect are dropped
	mc.handler(nil, mockMessage{topic: "responder/r-1/status", p: []byte(`{"incident_id":"inc-1","status":"accepted"}`)})
	n.Disconnect()
}

func TestResponderFromTopic(t *testing.T) {
	assert.Equal(t, "abc", responderFromTopic("responder/abc/status"))
	assert.Equal(t, "", responderFromTopic("responder/status"))
	assert.Equal(t, "", responderFromTopic("a/b/c/d"))
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	n := newTestNotifier(t, mc, Config{LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1})
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
	n.Disconnect()
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Broker: "tcp://x:1883"}.Validate())
	assert.Error(t, Config{Broker: "tcp://x:1883", ClientID: "c", AssignmentTopic: "no/placeholder"}.Validate())
	c := Config{Broker: "tcp://x:1883", ClientID: "c"}
	c.SetDefaults()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 3, c.MaxRetries)
}

func TestMockNotifier(t *testing.T) {
	m := NewMockNotifier()
	m.FailIDs["r-7"] = true
	assert.Error(t, m.Notify(context.Background(), order()))
	o := order()
	o.ResponderID = "r-1"
	require.NoError(t, m.Notify(context.Background(), o))
	assert.Len(t, m.Sent(), 1)
}
