// Package matching selects the responder best suited to an incident.
//
// A responder is eligible when it is active and has both coordinates set.
// Eligible responders are skill compatible when one of their skills contains,
// case-insensitively, one of the substrings a SkillPolicy requires for the
// incident type. Unknown incident types use the policy fallback, which by
// default accepts police, ambulance and fire brigade responders.
//
// Among compatible responders the closest one by haversine distance wins.
// Ties keep the responder that appears first in the pool: callers relying on
// a particular winner must pass the pool in a stable order.
//
// Matching is pure. It performs no I/O, keeps no state and never mutates the
// pool, so a single Matcher may be shared by any number of goroutines.
//
// Usage example:
//
//	m := matching.NewMatcher(matching.DefaultSkillPolicy())
//	if best, ok := m.FindBestResponder(19.11, 72.86, "fire", pool); ok {
//	        fmt.Println(best.Responder.ID, best.DistanceKm)
//	}
package matching
