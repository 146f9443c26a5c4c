package matching

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/responder/core/model"
)

func located(id string, lat, lon float64, skills ...string) model.Responder {
	return model.Responder{ID: id, Active: true, Skills: skills}.WithPosition(model.Coordinate{Lat: lat, Lon: lon})
}

func TestFindBestResponder_EmptyPool(t *testing.T) {
	for _, typ := range []string{"fire", "medical", "police", "general", "whatever", ""} {
		_, ok := FindBestResponder(19.11, 72.86, typ, nil)
		assert.False(t, ok, typ)
		_, ok = FindBestResponder(19.11, 72.86, typ, []model.Responder{})
		assert.False(t, ok, typ)
	}
}

func TestFindBestResponder_IneligibleOnly(t *testing.T) {
	lat, lon := 19.1, 72.85
	inactive := located("inactive", lat, lon, "Police", "Ambulance", "Fire Brigade")
	inactive.Active = false
	pool := []model.Responder{
		inactive,
		{ID: "nolat", Active: true, Longitude: &lon, Skills: []string{"Police"}},
		{ID: "nolon", Active: true, Latitude: &lat, Skills: []string{"Ambulance"}},
		{ID: "nowhere", Active: true, Skills: []string{"Fire Brigade"}},
	}
	for _, typ := range []string{"fire", "medical", "police", "general", "other"} {
		_, ok := FindBestResponder(19.11, 72.86, typ, pool)
		assert.False(t, ok, typ)
	}
}

func TestFindBestResponder_SingleCandidateAnyDistance(t *testing.T) {
	far := located("far", -33.86, 151.2, "Ambulance")
	pool := []model.Responder{located("cop", 19.11, 72.86, "Police"), far}
	m, ok := FindBestResponder(19.11, 72.86, "medical", pool)
	require.True(t, ok)
	assert.Equal(t, "far", m.Responder.ID)
	assert.Greater(t, m.DistanceKm, 10000.0)
}

func TestFindBestResponder_Closest(t *testing.T) {
	// 0.45 degrees of latitude is about 50 km, 0.045 about 5 km.
	pool := []model.Responder{
		located("fifty", 10.45, 20, "Police"),
		located("five", 10.045, 20, "Police"),
	}
	m, ok := FindBestResponder(10, 20, "police", pool)
	require.True(t, ok)
	assert.Equal(t, "five", m.Responder.ID)
	assert.InDelta(t, 5.0, m.DistanceKm, 0.1)
}

func TestFindBestResponder_TieKeepsFirst(t *testing.T) {
	a := located("a", 19.2, 72.9, "Ambulance")
	b := located("b", 19.2, 72.9, "Senior Ambulance Tech")
	m, ok := FindBestResponder(19.11, 72.86, "medical", []model.Responder{a, b})
	require.True(t, ok)
	assert.Equal(t, "a", m.Responder.ID)

	m, ok = FindBestResponder(19.11, 72.86, "medical", []model.Responder{b, a})
	require.True(t, ok)
	assert.Equal(t, "b", m.Responder.ID)
}

func TestFindBestResponder_FireScenario(t *testing.T) {
	pool := []model.Responder{
		located("brigade", 19.10, 72.85, "Fire Brigade"),
		located("medic", 19.00, 72.80, "Ambulance"),
	}
	m, ok := FindBestResponder(19.11, 72.86, "fire", pool)
	require.True(t, ok)
	assert.Equal(t, "brigade", m.Responder.ID)
	assert.Greater(t, m.DistanceKm, 0.0)
	assert.Less(t, m.DistanceKm, 2.0)
}

func TestFindBestResponder_UnknownTypeFallsBack(t *testing.T) {
	pool := []model.Responder{located("cop", 19.0, 72.8, "Police")}
	m, ok := FindBestResponder(19.11, 72.86, "unknown_type_xyz", pool)
	require.True(t, ok)
	assert.Equal(t, "cop", m.Responder.ID)
}

func TestFindBestResponder_MissingLongitude(t *testing.T) {
	lat := 19.1
	pool := []model.Responder{{ID: "medic", Active: true, Latitude: &lat, Skills: []string{"Ambulance"}}}
	_, ok := FindBestResponder(19.11, 72.86, "medical", pool)
	assert.False(t, ok)
}

func TestFindBestResponder_ZeroCoordinateIsLocated(t *testing.T) {
	pool := []model.Responder{located("origin", 0, 0, "Police")}
	m, ok := FindBestResponder(0, 0, "police", pool)
	require.True(t, ok)
	assert.Equal(t, 0.0, m.DistanceKm)
}

func TestFindBestResponder_CaseInsensitiveType(t *testing.T) {
	pool := []model.Responder{
		located("cop", 19.11, 72.86, "Police"),
		located("brigade", 19.5, 72.9, "FIRE BRIGADE"),
	}
	m, ok := FindBestResponder(19.11, 72.86, "FiRe", pool)
	require.True(t, ok)
	assert.Equal(t, "brigade", m.Responder.ID)
}

func TestFindBestResponder_SkillMismatchSkipsCloser(t *testing.T) {
	pool := []model.Responder{
		located("cop", 19.11, 72.86, "Police"),
		located("medic", 19.3, 72.9, "ambulance driver"),
	}
	m, ok := FindBestResponder(19.11, 72.86, "medical", pool)
	require.True(t, ok)
	assert.Equal(t, "medic", m.Responder.ID)
}

func TestFindBestResponder_NaNNeverWins(t *testing.T) {
	pool := []model.Responder{
		located("broken", math.NaN(), 72.8, "Police"),
		located("ok", 19.2, 72.8, "Police"),
	}
	m, ok := FindBestResponder(19.11, 72.86, "police", pool)
	require.True(t, ok)
	assert.Equal(t, "ok", m.Responder.ID)

	_, ok = FindBestResponder(19.11, 72.86, "police", pool[:1])
	assert.False(t, ok)
}

func TestFindBestResponder_DoesNotMutatePool(t *testing.T) {
	pool := []model.Responder{located("a", 1, 1, "Police", "Ambulance"), located("b", 2, 2, "fire brigade")}
	before := make([]model.Responder, len(pool))
	copy(before, pool)
	_, _ = FindBestResponder(0, 0, "general", pool)
	assert.Equal(t, before, pool)
}

func TestMatcher_CustomPolicy(t *testing.T) {
	pool := []model.Responder{
		located("cop", 19.11, 72.86, "Police"),
		located("hazmat", 19.5, 72.9, "Hazmat Unit"),
	}
	m := NewMatcher(NewSkillPolicy(map[string][]string{"Chemical": {"HAZMAT"}}, nil))
	best, ok := m.FindBestResponder(19.11, 72.86, "chemical", pool)
	require.True(t, ok)
	assert.Equal(t, "hazmat", best.Responder.ID)

	// nil fallback: unknown types match nobody under this policy.
	_, ok = m.FindBestResponder(19.11, 72.86, "fire", pool)
	assert.False(t, ok)
}

func TestMatcher_Idempotent(t *testing.T) {
	pool := []model.Responder{
		located("a", 19.2, 72.9, "Police"),
		located("b", 19.12, 72.87, "Ambulance"),
		located("c", 19.0, 72.7, "Fire Brigade"),
	}
	m := NewMatcher(DefaultSkillPolicy())
	first, ok := m.FindBestResponder(19.11, 72.86, "general", pool)
	require.True(t, ok)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := m.FindBestResponder(19.11, 72.86, "general", pool)
			assert.True(t, ok)
			assert.Equal(t, first, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, "b", first.Responder.ID)
}

func TestFindBestResponderAntipode(t *testing.T) {
	lat := 86.77999999999997
	m, ok := FindBestResponder(-lat, -179, "police", []model.Responder{located("cop", lat, 1, "Police")})
	require.True(t, ok)
	assert.Equal(t, "cop", m.Responder.ID)
	assert.False(t, math.IsNaN(m.DistanceKm))
}
