package matching

import "strings"

// Skill substrings used by the default policy.
const (
	SkillFireBrigade = "fire brigade"
	SkillAmbulance   = "ambulance"
	SkillPolice      = "police"
)

// SkillPolicy maps a lower-cased incident type to the skill substrings a
// responder must carry. Types missing from Requirements use Fallback. A type
// mapped to an empty list matches nobody.
type SkillPolicy struct {
	Requirements map[string][]string
	Fallback     []string
}

// DefaultSkillPolicy returns the built-in dispatch table.
func DefaultSkillPolicy() SkillPolicy {
	all := []string{SkillPolice, SkillAmbulance, SkillFireBrigade}
	return SkillPolicy{
		Requirements: map[string][]string{
			"fire":    {SkillFireBrigade},
			"medical": {SkillAmbulance},
			"police":  {SkillPolice},
			"general": all,
		},
		Fallback: append([]string(nil), all...),
	}
}

// NewSkillPolicy builds a policy with lower-cased keys and substrings.
func NewSkillPolicy(requirements map[string][]string, fallback []string) SkillPolicy {
	p := SkillPolicy{
		Requirements: make(map[string][]string, len(requirements)),
		Fallback:     lowerAll(fallback),
	}
	for k, v := range requirements {
		p.Requirements[strings.ToLower(k)] = lowerAll(v)
	}
	return p
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func (p SkillPolicy) isZero() bool {
	return p.Requirements == nil && p.Fallback == nil
}

// Required returns the skill substrings required for the incident type.
func (p SkillPolicy) Required(emergencyType string) []string {
	if req, ok := p.Requirements[strings.ToLower(emergencyType)]; ok {
		return req
	}
	return p.Fallback
}

// Compatible reports whether any of skills contains any of the substrings
// required for the incident type.
func (p SkillPolicy) Compatible(skills []string, emergencyType string) bool {
	_, ok := matchedSkill(skills, p.Required(emergencyType))
	return ok
}

// matchedSkill returns the first skill that contains one of required.
func matchedSkill(skills, required []string) (string, bool) {
	for _, req := range required {
		req = strings.ToLower(req)
		for _, s := range skills {
			if strings.Contains(strings.ToLower(s), req) {
				return s, true
			}
		}
	}
	return "", false
}

// Config is the configuration form of a SkillPolicy.
type Config struct {
	Skills   map[string][]string `json:"skills"`
	Fallback []string            `json:"fallback"`
}

// Policy converts the configuration into a SkillPolicy. Without any skill
// entries the default policy is returned. A missing fallback keeps the
// default fallback.
func (c Config) Policy() SkillPolicy {
	def := DefaultSkillPolicy()
	if len(c.Skills) == 0 && c.Fallback == nil {
		return def
	}
	reqs := c.Skills
	if len(reqs) == 0 {
		reqs = def.Requirements
	}
	fallback := c.Fallback
	if fallback == nil {
		fallback = def.Fallback
	}
	return NewSkillPolicy(reqs, fallback)
}
