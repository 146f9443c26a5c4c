package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/responder/core/dispatch"
	"github.com/kilianp07/responder/core/matching"
	"github.com/kilianp07/responder/core/metrics"
	"github.com/kilianp07/responder/infra/mqtt"
	"github.com/kilianp07/responder/infra/telemetry"
)

type Config struct {
	MQTT      mqtt.Config      `json:"mqtt"`
	Dispatch  dispatch.Config  `json:"dispatch"`
	Matching  matching.Config  `json:"matching"`
	Metrics   metrics.Config   `json:"metrics"`
	Logging   LoggingConfig    `json:"logging"`
	Pool      PoolConfig       `json:"pool"`
	Geocode   GeocodeConfig    `json:"geocode"`
	Telemetry telemetry.Config `json:"telemetry"`
}

// Default returns the configuration used when no file sets a value.
func Default() Config {
	return Config{Dispatch: dispatch.DefaultConfig()}
}

// Load reads the YAML or JSON file at path, applies K_ environment
// overrides and validates the result. An empty path loads the defaults and
// environment only. K_DISPATCH__AUTO_ASSIGN=false maps to dispatch.auto_assign.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Dispatch.SetDefaults()
	c.Logging.SetDefaults()
	if c.MQTT.Broker != "" {
		c.MQTT.SetDefaults()
		c.Telemetry.SetDefaults()
	}
}

// Validate checks every section. MQTT is only checked when a broker is set.
func (c Config) Validate() error {
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
		if err := c.Telemetry.Validate(); err != nil {
			return err
		}
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return nil
}
