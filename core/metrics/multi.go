package metrics

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordMatch forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordMatch(ev MatchEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordMatch(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordAssignment forwards to sinks implementing AssignmentRecorder.
func (m *MultiSink) RecordAssignment(ev AssignmentEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AssignmentRecorder); ok {
			if err := rec.RecordAssignment(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordNotification forwards to sinks implementing NotificationRecorder.
func (m *MultiSink) RecordNotification(ev NotificationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(NotificationRecorder); ok {
			if err := rec.RecordNotification(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPoolSize forwards to sinks implementing PoolSizeRecorder.
func (m *MultiSink) RecordPoolSize(total, active int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PoolSizeRecorder); ok {
			if err := rec.RecordPoolSize(total, active); err != nil {
				return err
			}
		}
	}
	return nil
}
