package matching

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/responder/core/geo"
	"github.com/kilianp07/responder/core/model"
)

// Reason explains why a responder was or was not selected.
type Reason string

const (
	ReasonInactive      Reason = "inactive"
	ReasonUnlocated     Reason = "unlocated"
	ReasonSkillMismatch Reason = "skill_mismatch"
	ReasonCandidate     Reason = "candidate"
	ReasonSelected      Reason = "selected"
)

// Verdict is the outcome for one pool entry. DistanceKm and Skill are only
// set for candidates; a zero distance is kept.
type Verdict struct {
	ResponderID string   `json:"responder_id"`
	Reason      Reason   `json:"reason"`
	Skill       string   `json:"skill,omitempty"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
}

// Summary describes the distances of the candidate set. NaN distances are
// counted in Candidates but excluded from the statistics.
type Summary struct {
	Candidates int     `json:"candidates"`
	MinKm      float64 `json:"min_km"`
	MeanKm     float64 `json:"mean_km"`
	MedianKm   float64 `json:"median_km"`
}

// Decision is the explained outcome of a match.
type Decision struct {
	Type           string           `json:"type"`
	Location       model.Coordinate `json:"location"`
	RequiredSkills []string         `json:"required_skills"`
	Match          *Match           `json:"match,omitempty"`
	Verdicts       []Verdict        `json:"verdicts"`
	Summary        Summary          `json:"summary"`
}

// Matched reports whether a responder was selected.
func (d Decision) Matched() bool { return d.Match != nil }

// Evaluate runs the same selection as FindBestResponder and records a verdict
// for every responder, in pool order.
func (m Matcher) Evaluate(loc model.Coordinate, emergencyType string, responders []model.Responder) Decision {
	required := m.policy().Required(emergencyType)
	dec := Decision{
		Type:           emergencyType,
		Location:       loc,
		RequiredSkills: append([]string(nil), required...),
		Verdicts:       make([]Verdict, len(responders)),
	}
	best := -1
	bestDist := math.Inf(1)
	var dists []float64
	for i, r := range responders {
		v := Verdict{ResponderID: r.ID}
		switch {
		case !r.Active:
			v.Reason = ReasonInactive
		case !r.Located():
			v.Reason = ReasonUnlocated
		default:
			skill, ok := matchedSkill(r.Skills, required)
			if !ok {
				v.Reason = ReasonSkillMismatch
				break
			}
			d := geo.DistanceKm(loc.Lat, loc.Lon, *r.Latitude, *r.Longitude)
			v.Reason = ReasonCandidate
			v.Skill = skill
			dec.Summary.Candidates++
			if !math.IsNaN(d) {
				v.DistanceKm = &d
				dists = append(dists, d)
			}
			if d < bestDist {
				best = i
				bestDist = d
			}
		}
		dec.Verdicts[i] = v
	}
	if best >= 0 {
		dec.Verdicts[best].Reason = ReasonSelected
		dec.Match = &Match{Responder: responders[best], DistanceKm: bestDist}
	}
	if len(dists) > 0 {
		sort.Float64s(dists)
		dec.Summary.MinKm = floats.Min(dists)
		dec.Summary.MeanKm = stat.Mean(dists, nil)
		dec.Summary.MedianKm = stat.Quantile(0.5, stat.Empirical, dists, nil)
	}
	return dec
}
