// Package geocode resolves incident addresses to coordinates.
package geocode

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilianp07/responder/core/model"
)

// Geocoder resolves a free-text address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.Coordinate, error)
}

// DefaultFallback is used when no provider can resolve an address.
var DefaultFallback = model.Coordinate{Lat: 19.1248, Lon: 72.8485}

// Static resolves addresses from a fixed table and returns Fallback for
// anything else. Lookups are case-insensitive.
type Static struct {
	Known    map[string]model.Coordinate
	Fallback model.Coordinate
}

// NewStatic returns a Static geocoder with DefaultFallback.
func NewStatic(known map[string]model.Coordinate) *Static {
	s := &Static{Known: make(map[string]model.Coordinate, len(known)), Fallback: DefaultFallback}
	for k, v := range known {
		s.Known[normalize(k)] = v
	}
	return s
}

func (s *Static) Geocode(ctx context.Context, address string) (model.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return model.Coordinate{}, err
	}
	if c, ok := s.Known[normalize(address)]; ok {
		return c, nil
	}
	return s.Fallback, nil
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// WithFallback wraps a Geocoder so that provider errors resolve to the
// fallback coordinate. Context errors are returned unchanged.
type WithFallback struct {
	Geocoder Geocoder
	Fallback model.Coordinate
	OnError  func(address string, err error)
}

func (w WithFallback) Geocode(ctx context.Context, address string) (model.Coordinate, error) {
	c, err := w.Geocoder.Geocode(ctx, address)
	if err == nil {
		return c, nil
	}
	if ctx.Err() != nil {
		return model.Coordinate{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if w.OnError != nil {
		w.OnError(address, err)
	}
	return w.Fallback, nil
}
