package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/responder/core/model"
	"github.com/kilianp07/responder/infra/logger"
)

const (
	// DefaultAssignmentTopic is formatted with the responder ID.
	DefaultAssignmentTopic = "responder/%s/assignment"
	DefaultStatusTopic     = "responder/+/status"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker          string          `json:"broker"`
	ClientID        string          `json:"client_id"`
	Username        string          `json:"username"`
	Password        string          `json:"password"`
	AssignmentTopic string          `json:"assignment_topic"`
	StatusTopic     string          `json:"status_topic"`
	UseTLS          bool            `json:"use_tls"`
	ClientCert      string          `json:"client_cert"`
	ClientKey       string          `json:"client_key"`
	CABundle        string          `json:"ca_bundle"`
	AuthMethod      string          `json:"auth_method"`
	QoS             map[string]byte `json:"qos"`
	LWTTopic        string          `json:"lwt_topic"`
	LWTPayload      string          `json:"lwt_payload"`
	LWTQoS          byte            `json:"lwt_qos"`
	LWTRetain       bool            `json:"lwt_retain"`
	MaxRetries      int             `json:"max_retries"`
	BackoffMS       int             `json:"backoff_ms"`
	TLSConfig       *tls.Config     `json:"-"`
}

// SetDefaults fills the topics and retry policy.
func (c *Config) SetDefaults() {
	if c.AssignmentTopic == "" {
		c.AssignmentTopic = DefaultAssignmentTopic
	}
	if c.StatusTopic == "" {
		c.StatusTopic = DefaultStatusTopic
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the fields needed to connect.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("mqtt.client_id is required")
	}
	if c.AssignmentTopic != "" && strings.Count(c.AssignmentTopic, "%s") != 1 {
		return fmt.Errorf("mqtt.assignment_topic must contain exactly one %%s")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Notifier publishes assignment orders and forwards responder status
// updates received on the status topic.
type Notifier struct {
	cli         pahoClient
	assignTopic string
	statusTopic string
	qos         map[string]byte
	logger      logger.Logger
	maxRetries  int
	backoff     time.Duration

	mu      sync.Mutex
	updates chan model.StatusUpdate
	closed  bool
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewNotifier connects to the MQTT broker and subscribes to the status topic.
func NewNotifier(cfg Config, log logger.Logger) (*Notifier, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("mqtt_client")
	}
	n := &Notifier{
		assignTopic: cfg.AssignmentTopic,
		statusTopic: cfg.StatusTopic,
		qos:         cfg.QoS,
		logger:      log,
		maxRetries:  cfg.MaxRetries,
		backoff:     time.Duration(cfg.BackoffMS) * time.Millisecond,
		updates:     make(chan model.StatusUpdate, 64),
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(n.statusTopic, n.qosFor("status"), n.onStatus); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	n.cli = c
	return n, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("read ca: no certificates in %s", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (n *Notifier) qosFor(kind string) byte {
	if q, ok := n.qos[kind]; ok {
		return q
	}
	return 1
}

// Updates returns the channel of decoded status updates. It is closed by
// Disconnect.
func (n *Notifier) Updates() <-chan model.StatusUpdate {
	return n.updates
}

// onStatus decodes a status message. The responder ID falls back to the
// topic segment when the payload omits it.
func (n *Notifier) onStatus(_ paho.Client, msg paho.Message) {
	var u model.StatusUpdate
	if err := json.Unmarshal(msg.Payload(), &u); err != nil {
		n.logger.Errorf("failed to decode status on %s: %v", msg.Topic(), err)
		return
	}
	if u.ResponderID == "" {
		u.ResponderID = responderFromTopic(msg.Topic())
	}
	if u.IncidentID == "" || u.ResponderID == "" || !u.Status.Valid() {
		n.logger.Warnf("ignoring status update %+v on %s", u, msg.Topic())
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.updates <- u:
		n.logger.Debugf("status %s from %s for %s", u.Status, u.ResponderID, u.IncidentID)
	default:
		n.logger.Warnf("status buffer full, dropping update from %s", u.ResponderID)
	}
}

// responderFromTopic extracts <id> from prefix/<id>/status.
func responderFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// Notify publishes the order to the responder's assignment topic, retrying
// with exponential backoff until the context is done.
func (n *Notifier) Notify(ctx context.Context, order model.AssignmentOrder) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf(n.assignTopic, order.ResponderID)
	qos := n.qosFor("assignment")

	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, qos, false, payload)
		select {
		case <-token.Done():
			publishErr = token.Error()
		case <-ctx.Done():
			return ctx.Err()
		}
		if publishErr == nil {
			n.logger.Infof("sent assignment %s to %s", order.AssignmentID, topic)
			return nil
		}
		n.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == n.maxRetries {
			break
		}
		select {
		case <-time.After(n.backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Disconnect gracefully closes the MQTT connection and the updates channel.
func (n *Notifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.updates)
	}
	n.mu.Unlock()
}
