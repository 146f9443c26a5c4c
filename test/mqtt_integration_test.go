package test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/responder/app"
	"github.com/kilianp07/responder/config"
	"github.com/kilianp07/responder/core/dispatch"
	"github.com/kilianp07/responder/core/factory"
	"github.com/kilianp07/responder/core/model"
	"github.com/kilianp07/responder/test/util"
)

const pool = `[
  {"id":"r-fire","name":"Station 1","latitude":19.07,"longitude":72.87,"skills":["Fire Brigade"],"is_active":true},
  {"id":"r-med","name":"Ambulance 4","latitude":19.08,"longitude":72.88,"skills":["Ambulance"],"is_active":true},
  {"id":"r-pol","name":"Patrol 7","latitude":19.09,"longitude":72.86,"skills":["Police"],"is_active":false}
]`

func TestFireIncidentRoundTripOverMQTT(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	broker, stop, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer stop()

	dir := t.TempDir()
	poolFile := filepath.Join(dir, "pool.json")
	require.NoError(t, os.WriteFile(poolFile, []byte(pool), 0o644))
	addr, err := util.FreeAddr()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.MQTT.Broker = broker
	cfg.MQTT.ClientID = "responder-it"
	cfg.Pool.File = poolFile
	cfg.Logging.Path = filepath.Join(dir, "decisions.jsonl")
	cfg.Dispatch.SweepSchedule = "@every 1s"
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "nop"}}
	cfg.Metrics.PrometheusAddr = addr
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := app.New(&cfg)
	require.NoError(t, err)
	runCtx, stopSvc := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Run(runCtx) }()
	defer func() {
		stopSvc()
		<-done
		_ = svc.Close()
	}()

	orders, unsubscribe, err := util.Subscribe(broker, "responder/+/assignment")
	require.NoError(t, err)
	defer unsubscribe()

	loc := model.Coordinate{Lat: 19.076, Lon: 72.8777}
	inc, err := svc.Manager.Report(ctx, dispatch.ReportRequest{
		Title:    "Warehouse fire",
		Type:     "fire",
		Severity: model.SeverityHigh,
		Location: &loc,
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, inc.Status)
	require.Equal(t, "r-fire", inc.AssignedTo)

	var order model.AssignmentOrder
	select {
	case msg := <-orders:
		assert.Equal(t, "responder/r-fire/assignment", msg.Topic)
		require.NoError(t, json.Unmarshal(msg.Payload, &order))
	case <-time.After(10 * time.Second):
		t.Fatal("no assignment order received")
	}
	assert.Equal(t, inc.ID, order.IncidentID)
	assert.Equal(t, "fire", order.IncidentType)

	status, err := json.Marshal(model.StatusUpdate{IncidentID: inc.ID, Status: model.AssignmentAccepted})
	require.NoError(t, err)
	require.NoError(t, util.Publish(broker, "responder/r-fire/status", status))

	require.Eventually(t, func() bool {
		cur, err := svc.Manager.Incident(ctx, inc.ID)
		return err == nil && cur.Status == model.StatusInProgress
	}, 10*time.Second, 50*time.Millisecond)

	mctx, mcancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer mcancel()
	require.NoError(t, util.WaitForMetric(mctx, fmt.Sprintf("http://%s/metrics", addr), "dispatch_assignments_total"))
}

func TestPresenceAndIntakeOverMQTT(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	broker, stop, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer stop()

	dir := t.TempDir()
	poolFile := filepath.Join(dir, "pool.json")
	require.NoError(t, os.WriteFile(poolFile, []byte(pool), 0o644))

	cfg := config.Default()
	cfg.MQTT.Broker = broker
	cfg.MQTT.ClientID = "responder-presence"
	cfg.Pool.File = poolFile
	cfg.Logging.Backend = "none"
	cfg.Dispatch.SweepSchedule = "@every 1s"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := app.New(&cfg)
	require.NoError(t, err)
	runCtx, stopSvc := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Run(runCtx) }()
	defer func() {
		stopSvc()
		<-done
		_ = svc.Close()
	}()

	loc := model.Coordinate{Lat: 19.09, Lon: 72.861}
	inc, err := svc.Manager.Report(ctx, dispatch.ReportRequest{Title: "Break-in", Type: "police", Location: &loc})
	require.NoError(t, err)
	require.Equal(t, model.StatusOpen, inc.Status)

	// The inactive patrol comes on duty; the sweeper picks up the incident.
	require.Eventually(t, func() bool {
		if err := util.Publish(broker, "responder/r-pol/presence", []byte(`{"is_active":true}`)); err != nil {
			return false
		}
		cur, err := svc.Manager.Incident(ctx, inc.ID)
		return err == nil && cur.AssignedTo == "r-pol"
	}, 20*time.Second, 500*time.Millisecond)

	report := []byte(`{"title":"Collapse","type":"medical","location":{"latitude":19.08,"longitude":72.881}}`)
	require.NoError(t, util.Publish(broker, "incidents/report", report))
	require.Eventually(t, func() bool {
		list, err := svc.Store.Incidents(ctx, "")
		if err != nil {
			return false
		}
		for _, i := range list {
			if i.Type == "medical" && i.AssignedTo == "r-med" {
				return true
			}
		}
		return false
	}, 10*time.Second, 100*time.Millisecond)
}
