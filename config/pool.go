package config

import (
	"github.com/kilianp07/responder/core/geocode"
	"github.com/kilianp07/responder/core/model"
)

// PoolConfig points at the responder seed file loaded at startup.
type PoolConfig struct {
	File string `json:"file"`
}

// KnownAddress pins one address to a coordinate.
type KnownAddress struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeocodeConfig lists known addresses and the coordinate used for anything
// else. Addresses are a list so that keys containing the koanf delimiter,
// such as "St. Mary Rd", survive loading.
type GeocodeConfig struct {
	Addresses []KnownAddress    `json:"addresses"`
	Fallback  *model.Coordinate `json:"fallback"`
}

// Geocoder builds the static geocoder.
func (c GeocodeConfig) Geocoder() *geocode.Static {
	known := make(map[string]model.Coordinate, len(c.Addresses))
	for _, a := range c.Addresses {
		known[a.Address] = model.Coordinate{Lat: a.Latitude, Lon: a.Longitude}
	}
	g := geocode.NewStatic(known)
	if c.Fallback != nil {
		g.Fallback = *c.Fallback
	}
	return g
}
