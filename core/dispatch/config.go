package dispatch

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule retries open incidents every thirty seconds.
const DefaultSweepSchedule = "@every 30s"

// Config defines dispatch-related settings.
type Config struct {
	AutoAssign           bool   `json:"auto_assign"`
	SweepSchedule        string `json:"sweep_schedule"`
	NotifyTimeoutSeconds int    `json:"notify_timeout_seconds"`
}

// DefaultConfig enables automatic assignment with the default sweep.
func DefaultConfig() Config {
	return Config{AutoAssign: true, SweepSchedule: DefaultSweepSchedule, NotifyTimeoutSeconds: 5}
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.SweepSchedule == "" {
		c.SweepSchedule = DefaultSweepSchedule
	}
	if c.NotifyTimeoutSeconds <= 0 {
		c.NotifyTimeoutSeconds = 5
	}
}

// Validate checks that the sweep schedule parses. "off" disables the sweeper.
func (c Config) Validate() error {
	if c.SweepSchedule == "off" {
		return nil
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("dispatch.sweep_schedule: %w", err)
	}
	return nil
}

// NotifyTimeout returns the per-order notification deadline.
func (c Config) NotifyTimeout() time.Duration {
	if c.NotifyTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.NotifyTimeoutSeconds) * time.Second
}
