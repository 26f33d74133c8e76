package model

import (
	"time"

	"ft8spotter/go-spotter/internal/cty"
	"ft8spotter/go-spotter/internal/need"
)

// Location is the center of a heard grid square in degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Spot is one classified decode as handed to reporters.
type Spot struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Source     string    `json:"source"`

	SNR            int32   `json:"snr"`
	DeltaTime      float64 `json:"delta_time"`
	DeltaFrequency uint32  `json:"delta_frequency"`
	Message        string  `json:"message"`
	LowConfidence  bool    `json:"low_confidence,omitempty"`

	Callsign     string              `json:"callsign"`
	Grid         string              `json:"grid,omitempty"`
	GridLocation *Location           `json:"grid_location,omitempty"`
	Entity       *cty.ResolvedEntity `json:"entity,omitempty"`
	Band         int                 `json:"band"`
	Mode         string              `json:"mode"`
	Need         need.Grade          `json:"need"`
	Label        need.Label          `json:"label"`
}

// EntityName is the resolved entity name, or "unknown".
func (s Spot) EntityName() string {
	if s.Entity == nil || s.Entity.Name == "" {
		return "unknown"
	}
	return s.Entity.Name
}

// LookupResult answers an entity lookup from the HTTP API.
type LookupResult struct {
	Callsign string              `json:"callsign"`
	At       time.Time           `json:"at"`
	Found    bool                `json:"found"`
	Entity   *cty.ResolvedEntity `json:"entity,omitempty"`
}
