package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, DefaultSweepSchedule, c.SweepSchedule)
	assert.Equal(t, 5*time.Second, c.NotifyTimeout())
	assert.NoError(t, c.Validate())

	d := DefaultConfig()
	assert.True(t, d.AutoAssign)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{SweepSchedule: "*/5 * * * *"}.Validate())
	assert.NoError(t, Config{SweepSchedule: "off"}.Validate())
	assert.Error(t, Config{SweepSchedule: "@every banana"}.Validate())
}
