// Package adsb maps decoded position reports onto the downstream ADS-B
// aircraft-state schema.
package adsb

import (
	"prd_gateway/internal/icons"
	"prd_gateway/internal/prd"
)

// NoTailNumber is the sentinel used when a report carries no tail number.
const NoTailNumber = "N/A"

// AircraftState is the externally delivered representation of one aircraft.
// It owns a copy of the report's fields; nothing aliases back to the source
// frame. Every field is included when the state is serialized to JSON.
type AircraftState struct {
	Callsign   string            `json:"callsign"`
	Type       string            `json:"type"`
	Latitude   float64           `json:"latitude"`
	Longitude  float64           `json:"longitude"`
	Altitude   float64           `json:"altitude"`
	Speed      float64           `json:"speed"`
	Heading    float64           `json:"heading"`
	Icon       string            `json:"icon"`
	TailNumber string            `json:"tail_number"`
	Ext        map[string]string `json:"ext,omitempty"`
}

// Normalizer translates PositionReports into AircraftStates against a fixed
// icon table. Normalize is total and deterministic, so a single Normalizer is
// safe to share across every datagram worker.
type Normalizer struct {
	table *icons.Table
}

// NewNormalizer builds a Normalizer over the given icon table. The table must
// not be mutated afterwards; nil means "empty table, default icon only".
func NewNormalizer(table *icons.Table) *Normalizer {
	return &Normalizer{table: table}
}

// Normalize maps a decoded report onto the ADS-B schema.
//
// Icon resolution precedence: callsign, then aircraft type, then the table's
// default — and a tail-number match, when the report carries one, overrides
// all three. Normalize cannot fail: every report field already has a defined
// default.
func (n *Normalizer) Normalize(r *prd.PositionReport) AircraftState {
	st := AircraftState{
		Callsign:   r.Callsign,
		Type:       r.Type,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Altitude:   r.Altitude,
		Speed:      r.Speed,
		Heading:    r.Heading,
		TailNumber: NoTailNumber,
	}
	if len(r.Ext) > 0 {
		st.Ext = make(map[string]string, len(r.Ext))
		for k, v := range r.Ext {
			st.Ext[k] = v
		}
	}

	if icon, ok := n.table.Lookup(st.Callsign); ok {
		st.Icon = icon
	} else if icon, ok := n.table.Lookup(st.Type); ok {
		st.Icon = icon
	} else {
		st.Icon = n.table.Default()
	}

	if tail := r.TailNumber(); tail != "" {
		st.TailNumber = tail
		if icon, ok := n.table.Lookup(tail); ok {
			st.Icon = icon
		}
	}

	return st
}
