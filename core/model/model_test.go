package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResponderLocated(t *testing.T) {
	lat, lon := 19.1, 72.8
	assert.False(t, Responder{}.Located())
	assert.False(t, Responder{Latitude: &lat}.Located())
	assert.False(t, Responder{Longitude: &lon}.Located())
	assert.True(t, Responder{Latitude: &lat, Longitude: &lon}.Located())
}

func TestResponderWithPosition(t *testing.T) {
	r := Responder{ID: "r1"}.WithPosition(Coordinate{Lat: 1, Lon: 2})
	pos, ok := r.Position()
	assert.True(t, ok)
	assert.Equal(t, Coordinate{Lat: 1, Lon: 2}, pos)

	_, ok = Responder{ID: "r2"}.Position()
	assert.False(t, ok)
}

func TestCoordinateValid(t *testing.T) {
	cases := []struct {
		c    Coordinate
		want bool
	}{
		{Coordinate{0, 0}, true},
		{Coordinate{90, 180}, true},
		{Coordinate{-90.1, 0}, false},
		{Coordinate{0, 180.5}, false},
		{Coordinate{math.NaN(), 0}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.c.Valid(), "%+v", c.c)
	}
}

func TestIncidentValidate(t *testing.T) {
	assert.Error(t, Incident{Type: "fire"}.Validate())
	assert.Error(t, Incident{Title: "x"}.Validate())
	assert.Error(t, Incident{Title: "x", Type: "fire", Severity: "extreme"}.Validate())
	assert.Error(t, Incident{Title: "x", Type: "fire", Status: "done"}.Validate())
	assert.NoError(t, Incident{Title: "x", Type: "fire", Severity: SeverityHigh}.Validate())
}

func TestAssignmentStatusLive(t *testing.T) {
	assert.True(t, AssignmentPending.Live())
	assert.True(t, AssignmentAccepted.Live())
	assert.False(t, AssignmentDeclined.Live())
	assert.False(t, AssignmentCompleted.Live())
	assert.False(t, AssignmentStatus("lost").Valid())
}

func TestNewAssignmentOrder(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	inc := Incident{ID: "inc-1", Type: "fire", Severity: SeverityHigh, Location: Coordinate{Lat: 19.1, Lon: 72.8}}
	a := Assignment{ID: "a-1", ResponderID: "r-1", DistanceKm: 2.5}
	o := NewAssignmentOrder(inc, a, ts)
	assert.Equal(t, AssignmentOrder{
		AssignmentID: "a-1",
		IncidentID:   "inc-1",
		ResponderID:  "r-1",
		IncidentType: "fire",
		Severity:     SeverityHigh,
		Latitude:     19.1,
		Longitude:    72.8,
		DistanceKm:   2.5,
		Timestamp:    ts,
	}, o)
}
