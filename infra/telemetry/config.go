package telemetry

import (
	"fmt"
	"strings"
)

const (
	DefaultPresenceTopic = "responder/+/presence"
	DefaultIntakeTopic   = "incidents/report"
)

// Config selects the inbound topics. An intake topic of "off" disables
// incident intake over MQTT.
type Config struct {
	PresenceTopic string `json:"presence_topic"`
	IntakeTopic   string `json:"intake_topic"`
	QoS           byte   `json:"qos"`
}

// SetDefaults fills unset topics.
func (c *Config) SetDefaults() {
	if c.PresenceTopic == "" {
		c.PresenceTopic = DefaultPresenceTopic
	}
	if c.IntakeTopic == "" {
		c.IntakeTopic = DefaultIntakeTopic
	}
	if c.QoS == 0 {
		c.QoS = 1
	}
}

// Validate requires exactly one single-level wildcard in the presence topic.
func (c Config) Validate() error {
	if strings.Count(c.PresenceTopic, "+") != 1 {
		return fmt.Errorf("telemetry.presence_topic %q: exactly one + wildcard required", c.PresenceTopic)
	}
	if c.QoS > 2 {
		return fmt.Errorf("telemetry.qos %d: must be 0, 1 or 2", c.QoS)
	}
	return nil
}

// IntakeEnabled reports whether incidents are read from MQTT.
func (c Config) IntakeEnabled() bool {
	return c.IntakeTopic != "" && c.IntakeTopic != "off"
}
