package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	matches     int
	assignments int
	pool        [2]int
	err         error
}

func (r *recordSink) RecordMatch(MatchEvent) error {
	r.matches++
	return r.err
}

func (r *recordSink) RecordAssignment(AssignmentEvent) error {
	r.assignments++
	return nil
}

func (r *recordSink) RecordPoolSize(total, active int) error {
	r.pool = [2]int{total, active}
	return nil
}

type matchOnly struct{ n int }

func (m *matchOnly) RecordMatch(MatchEvent) error { m.n++; return nil }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &matchOnly{}
	m := NewMultiSink(s1, s2)

	assert.NoError(t, m.RecordMatch(MatchEvent{}))
	assert.NoError(t, m.RecordAssignment(AssignmentEvent{}))
	assert.NoError(t, m.RecordNotification(NotificationEvent{}))
	assert.NoError(t, m.RecordPoolSize(4, 3))

	assert.Equal(t, 1, s1.matches)
	assert.Equal(t, 1, s2.n)
	assert.Equal(t, 1, s1.assignments)
	assert.Equal(t, [2]int{4, 3}, s1.pool)
}

func TestMultiSinkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordMatch(MatchEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s2.matches)
}
