package metrics

import (
	"fmt"
	"strings"

	"github.com/kilianp07/responder/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a dispatch metrics sink factory under a
// lower-case type name such as "prometheus" or "influx".
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(strings.ToLower(name), f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink builds the sinks listed under metrics.sinks. No entry
// yields a NopSink, one entry its sink and several a MultiSink. A type
// listed twice is built once.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	seen := make(map[string]bool, len(cfgs))
	sinks := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		c.Type = strings.ToLower(strings.TrimSpace(c.Type))
		if seen[c.Type] {
			continue
		}
		seen[c.Type] = true
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, fmt.Errorf("metrics.sinks[%d] %q: %w (known: %s)", i, c.Type, err, strings.Join(SinkTypes(), ", "))
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
