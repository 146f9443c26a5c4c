package model

// Responder is a member of the dispatchable pool. Latitude and Longitude are
// independently optional: a responder that never reported a position has
// both nil.
type Responder struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Email     string   `json:"email,omitempty" yaml:"email"`
	Phone     string   `json:"phone,omitempty" yaml:"phone"`
	Latitude  *float64 `json:"latitude" yaml:"latitude"`
	Longitude *float64 `json:"longitude" yaml:"longitude"`
	Skills    []string `json:"skills" yaml:"skills"`
	Active    bool     `json:"is_active" yaml:"is_active"`
}

// Located reports whether both latitude and longitude are set.
func (r Responder) Located() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Position returns the responder coordinate when located.
func (r Responder) Position() (Coordinate, bool) {
	if !r.Located() {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *r.Latitude, Lon: *r.Longitude}, true
}

// WithPosition returns a copy of r located at c.
func (r Responder) WithPosition(c Coordinate) Responder {
	lat, lon := c.Lat, c.Lon
	r.Latitude = &lat
	r.Longitude = &lon
	return r
}
