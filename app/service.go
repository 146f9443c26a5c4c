package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/responder/config"
	"github.com/kilianp07/responder/core/dispatch"
	"github.com/kilianp07/responder/core/events"
	"github.com/kilianp07/responder/core/matching"
	coremetrics "github.com/kilianp07/responder/core/metrics"
	"github.com/kilianp07/responder/infra/logger"
	"github.com/kilianp07/responder/infra/metrics"
	"github.com/kilianp07/responder/infra/mqtt"
	"github.com/kilianp07/responder/infra/store"
	"github.com/kilianp07/responder/infra/telemetry"
	"github.com/kilianp07/responder/internal/eventbus"
)

// eventBuffer bounds the events queued for the tracing subscriber.
const eventBuffer = 64

// Service orchestrates the assignment manager, the sweeper and the MQTT
// links: orders and status updates, responder presence and incident intake.
type Service struct {
	Manager  *dispatch.AssignmentManager
	Store    *store.MemoryStore
	Notifier dispatch.Notifier
	sweeper  *dispatch.Sweeper
	mqtt     *mqtt.Notifier
	inbound  *telemetry.Manager
	bus      *eventbus.Bus
	log      logger.Logger
	promAddr string
}

// New creates a Service from the configuration. Without an MQTT broker
// orders are kept by an in-memory notifier.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")
	var (
		notifier dispatch.Notifier
		client   *mqtt.Notifier
	)
	if cfg.MQTT.Broker != "" {
		c, err := mqtt.NewNotifier(cfg.MQTT, logger.New("mqtt_client"))
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		notifier, client = c, c
	} else {
		log.Warnf("no mqtt broker configured, assignment orders stay in memory")
		notifier = mqtt.NewMockNotifier()
	}
	svc, err := build(cfg, notifier, log)
	if err != nil {
		if client != nil {
			client.Disconnect()
		}
		return nil, err
	}
	svc.mqtt = client
	if client != nil {
		in, err := telemetry.NewManager(cfg.MQTT, cfg.Telemetry, svc.Store, svc.Manager, logger.New("telemetry"))
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		svc.inbound = in
	}
	return svc, nil
}

func build(cfg *config.Config, notifier dispatch.Notifier, log logger.Logger) (*Service, error) {
	st := store.NewMemoryStore()
	if cfg.Pool.File != "" {
		n, err := st.LoadResponders(cfg.Pool.File)
		if err != nil {
			return nil, fmt.Errorf("responder pool: %w", err)
		}
		log.Infof("loaded %d responders from %s", n, cfg.Pool.File)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	logs, err := cfg.Logging.Open()
	if err != nil {
		return nil, fmt.Errorf("decision log: %w", err)
	}

	bus := eventbus.NewWithBuffer(eventBuffer)
	mgr, err := dispatch.NewAssignmentManager(
		st,
		matching.NewMatcher(cfg.Matching.Policy()),
		notifier,
		cfg.Dispatch,
		sink,
		bus,
		logger.New("dispatch"),
	)
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("assignment manager: %w", err)
	}
	mgr.SetLogStore(logs)
	mgr.SetGeocoder(cfg.Geocode.Geocoder())

	svc := &Service{Manager: mgr, Store: st, Notifier: notifier, bus: bus, log: log, promAddr: cfg.Metrics.PrometheusAddr}
	if cfg.Dispatch.SweepSchedule != "off" {
		svc.sweeper, err = dispatch.NewSweeper(mgr, cfg.Dispatch.SweepSchedule, logger.New("sweeper"))
		if err != nil {
			_ = mgr.Close()
			return nil, err
		}
	}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	sub := s.bus.Subscribe()
	go s.logEvents(sub)
	if s.mqtt != nil {
		go s.Manager.Run(ctx, s.mqtt.Updates())
	}
	if s.inbound != nil {
		go s.inbound.Start(ctx)
	}
	if s.sweeper != nil {
		s.sweeper.Start()
		defer s.sweeper.Stop()
	}
	if s.promAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.log.Infof("responder dispatch running")
	<-ctx.Done()
	return nil
}

// logEvents traces bus traffic until the subscription is closed.
func (s *Service) logEvents(sub <-chan eventbus.Event) {
	for ev := range sub {
		switch e := ev.(type) {
		case events.IncidentReported:
			s.log.Debugw("event incident_reported", map[string]any{"incident_id": e.Incident.ID})
		case events.MatchDecided:
			s.log.Debugw("event match_decided", map[string]any{"incident_id": e.IncidentID, "matched": e.Decision.Matched()})
		case events.AssignmentChanged:
			s.log.Debugw("event assignment_changed", map[string]any{
				"incident_id":     e.Assignment.IncidentID,
				"responder_id":    e.Assignment.ResponderID,
				"status":          string(e.Assignment.Status),
				"incident_status": string(e.IncidentStatus),
				"removed":         e.Removed,
			})
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("event bus dropped %d events", n)
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	return s.Manager.Close()
}
