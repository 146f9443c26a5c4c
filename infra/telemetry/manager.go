// Package telemetry ingests what responders and reporters push over MQTT:
// presence messages that toggle availability and move responders, and
// incident reports handed to the assignment manager.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/responder/core/dispatch"
	"github.com/kilianp07/responder/core/model"
	"github.com/kilianp07/responder/infra/logger"
	infmqtt "github.com/kilianp07/responder/infra/mqtt"
)

// ErrUnknownResponder is returned for presence of a responder that is not in
// the pool and carries no profile to register it.
var ErrUnknownResponder = errors.New("unknown responder")

// Pool is the part of the responder store driven by presence messages.
type Pool interface {
	SetResponder(r model.Responder)
	SetActive(id string, active bool) bool
	UpdatePosition(id string, c model.Coordinate) bool
}

// Reporter accepts incidents read from the intake topic.
type Reporter interface {
	Report(ctx context.Context, req dispatch.ReportRequest) (model.Incident, error)
}

var (
	presenceTotal *prometheus.CounterVec
	intakeTotal   *prometheus.CounterVec
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec) {
	p := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_presence_messages_total",
		Help: "Responder presence messages by result",
	}, []string{"result"})
	i := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_incident_reports_total",
		Help: "Incident reports received over MQTT by result",
	}, []string{"result"})
	return p, i
}

func init() {
	presenceTotal, intakeTotal = newCollectors()
	prometheus.MustRegister(presenceTotal, intakeTotal)
}

// ResetMetrics replaces the collectors, registering them on reg when not nil.
func ResetMetrics(reg prometheus.Registerer) {
	presenceTotal, intakeTotal = newCollectors()
	if reg != nil {
		reg.MustRegister(presenceTotal, intakeTotal)
	}
}

// Manager subscribes to the presence and intake topics.
type Manager struct {
	cfg      Config
	cli      paho.Client
	pool     Pool
	reporter Reporter
	log      logger.Logger

	reports chan []byte
}

// NewManager connects a dedicated MQTT client for inbound traffic.
func NewManager(mqttCfg infmqtt.Config, cfg Config, pool Pool, reporter Reporter, log logger.Logger) (*Manager, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := infmqtt.NewClientOptions(mqttCfg)
	if err != nil {
		return nil, err
	}
	id := mqttCfg.ClientID
	if id != "" {
		id += "-telemetry"
	} else {
		id = "telemetry-" + uuid.NewString()
	}
	opts.SetClientID(id)
	// The will belongs to the notifier client.
	opts.WillEnabled = false
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return newManager(cli, cfg, pool, reporter, log), nil
}

func newManager(cli paho.Client, cfg Config, pool Pool, reporter Reporter, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Manager{
		cfg:      cfg,
		cli:      cli,
		pool:     pool,
		reporter: reporter,
		log:      log,
		reports:  make(chan []byte, 64),
	}
}

// Start subscribes and handles intake until ctx is done, then disconnects.
func (m *Manager) Start(ctx context.Context) {
	if token := m.cli.Subscribe(m.cfg.PresenceTopic, m.cfg.QoS, m.onPresence); token.Wait() && token.Error() != nil {
		m.log.Errorf("subscribe presence: %v", token.Error())
	}
	if m.cfg.IntakeEnabled() && m.reporter != nil {
		if token := m.cli.Subscribe(m.cfg.IntakeTopic, m.cfg.QoS, m.onReport); token.Wait() && token.Error() != nil {
			m.log.Errorf("subscribe intake: %v", token.Error())
		}
	}
	for {
		select {
		case payload := <-m.reports:
			if _, err := m.report(ctx, payload); err != nil {
				m.log.Errorf("incident intake: %v", err)
			}
		case <-ctx.Done():
			if m.cli.IsConnected() {
				m.cli.Disconnect(250)
			}
			return
		}
	}
}

func (m *Manager) onPresence(_ paho.Client, msg paho.Message) {
	if err := m.process(msg.Payload(), msg.Topic()); err != nil {
		presenceTotal.WithLabelValues("rejected").Inc()
		m.log.Warnf("presence on %s: %v", msg.Topic(), err)
		return
	}
	presenceTotal.WithLabelValues("applied").Inc()
}

// onReport queues the payload; Report runs on the Start goroutine.
func (m *Manager) onReport(_ paho.Client, msg paho.Message) {
	select {
	case m.reports <- append([]byte(nil), msg.Payload()...):
	default:
		intakeTotal.WithLabelValues("dropped").Inc()
		m.log.Warnf("intake buffer full, dropping report")
	}
}

// extractID returns the topic segment matched by the + of pattern.
func extractID(pattern, topic string) string {
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")
	if len(pp) != len(tp) {
		return ""
	}
	for i, p := range pp {
		if p == "+" {
			return tp[i]
		}
	}
	return ""
}

type presenceMessage struct {
	ResponderID string   `json:"responder_id"`
	Name        string   `json:"name"`
	Skills      []string `json:"skills"`
	Active      *bool    `json:"is_active"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// process applies one presence message. Unknown responders are registered
// when the message carries skills. A position needs both coordinates.
func (m *Manager) process(payload []byte, topic string) error {
	var msg presenceMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	if msg.ResponderID == "" {
		msg.ResponderID = extractID(m.cfg.PresenceTopic, topic)
	}
	if msg.ResponderID == "" {
		return fmt.Errorf("presence without responder id")
	}
	if (msg.Latitude == nil) != (msg.Longitude == nil) {
		return fmt.Errorf("responder %s: latitude and longitude must be sent together", msg.ResponderID)
	}

	if msg.Active == nil && msg.Latitude == nil {
		return fmt.Errorf("responder %s: empty presence", msg.ResponderID)
	}

	id := msg.ResponderID
	known := true
	if msg.Active != nil {
		known = m.pool.SetActive(id, *msg.Active)
	}
	if known && msg.Latitude != nil {
		known = m.pool.UpdatePosition(id, model.Coordinate{Lat: *msg.Latitude, Lon: *msg.Longitude})
	}
	if known {
		m.log.Debugf("presence applied for %s", id)
		return nil
	}
	if len(msg.Skills) == 0 {
		return fmt.Errorf("responder %s: %w", id, ErrUnknownResponder)
	}
	r := model.Responder{ID: id, Name: msg.Name, Skills: msg.Skills, Latitude: msg.Latitude, Longitude: msg.Longitude}
	if msg.Active != nil {
		r.Active = *msg.Active
	}
	m.pool.SetResponder(r)
	m.log.Infof("responder %s registered from presence", id)
	return nil
}

func (m *Manager) report(ctx context.Context, payload []byte) (model.Incident, error) {
	var req dispatch.ReportRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		intakeTotal.WithLabelValues("invalid").Inc()
		return model.Incident{}, fmt.Errorf("decode report: %w", err)
	}
	inc, err := m.reporter.Report(ctx, req)
	if err != nil {
		intakeTotal.WithLabelValues("rejected").Inc()
		return model.Incident{}, err
	}
	intakeTotal.WithLabelValues("accepted").Inc()
	m.log.Infof("incident %s received over MQTT", inc.ID)
	return inc, nil
}
