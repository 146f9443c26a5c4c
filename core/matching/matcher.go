package matching

import (
	"math"

	"github.com/kilianp07/responder/core/geo"
	"github.com/kilianp07/responder/core/model"
)

// Match is the responder selected for an incident and its distance.
type Match struct {
	Responder  model.Responder `json:"responder"`
	DistanceKm float64         `json:"distance_km"`
}

// Matcher selects responders according to a SkillPolicy. The zero value
// uses DefaultSkillPolicy.
type Matcher struct {
	Policy SkillPolicy
}

// NewMatcher returns a Matcher using the given policy.
func NewMatcher(p SkillPolicy) Matcher {
	return Matcher{Policy: p}
}

var defaultMatcher = Matcher{}

// FindBestResponder runs the default matcher.
func FindBestResponder(lat, lon float64, emergencyType string, responders []model.Responder) (Match, bool) {
	return defaultMatcher.FindBestResponder(lat, lon, emergencyType, responders)
}

func (m Matcher) policy() SkillPolicy {
	if m.Policy.isZero() {
		return DefaultSkillPolicy()
	}
	return m.Policy
}

// Eligible reports whether r may be considered at all.
func Eligible(r model.Responder) bool {
	return r.Active && r.Located()
}

// FindBestResponder returns the closest eligible and skill compatible
// responder. The second result is false when there is no such responder.
// Equal distances keep the earliest responder in the slice.
func (m Matcher) FindBestResponder(lat, lon float64, emergencyType string, responders []model.Responder) (Match, bool) {
	required := m.policy().Required(emergencyType)
	best := -1
	bestDist := math.Inf(1)
	for i, r := range responders {
		if !Eligible(r) {
			continue
		}
		if _, ok := matchedSkill(r.Skills, required); !ok {
			continue
		}
		d := geo.DistanceKm(lat, lon, *r.Latitude, *r.Longitude)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		return Match{}, false
	}
	return Match{Responder: responders[best], DistanceKm: bestDist}, true
}
