// Package prd provides the Position Report Datagram (PRD) message model and
// wire codec. A PRD is the application-specific binary datagram this gateway
// receives over UDP and translates into the downstream ADS-B schema.
package prd

import "strings"

// FieldMask records which optional fields were actually carried by the wire
// encoding. Numeric fields default to zero when absent, so without the mask a
// reported zero (heading due north, altitude on the ground) is
// indistinguishable from "not reported".
type FieldMask uint8

const (
	FieldCallsign FieldMask = 1 << iota
	FieldType
	FieldPosition
	FieldAltitude
	FieldSpeed
	FieldHeading
)

// DefaultCallsign is substituted when a frame carries no callsign.
const DefaultCallsign = "ABC123"

// DefaultType is substituted when a frame carries no aircraft type designator.
const DefaultType = "Unknown"

// PositionReport is the decoded form of a PRD frame.
//
// All numeric fields are always populated; absent optional fields hold their
// defaults and the corresponding bit in Fields is clear. Ext carries vendor
// extension entries verbatim so unknown fields survive a decode/encode round
// trip. The only extension key this system interprets is "tail_number".
type PositionReport struct {
	Callsign  string  `json:"callsign"`
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"` // feet
	Speed     float64 `json:"speed"`    // knots, over ground
	Heading   float64 `json:"heading"`  // degrees, [0,360)

	Fields FieldMask         `json:"fields"`
	Ext    map[string]string `json:"ext,omitempty"`
}

// Has reports whether every field in mask was present on the wire.
func (r *PositionReport) Has(mask FieldMask) bool {
	return r.Fields&mask == mask
}

// TailNumber returns the tail_number extension value, or "" if the frame did
// not carry one.
func (r *PositionReport) TailNumber() string {
	return strings.TrimSpace(r.Ext["tail_number"])
}
