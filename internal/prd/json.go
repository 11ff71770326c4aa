package prd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DecodeJSON parses a JSON-encoded position report. Some PRD sources emit
// JSON objects instead of binary frames; the ingest loop autodetects which
// encoding a datagram carries.
//
// Known keys map onto the base fields and set their presence bits; any other
// key lands in the extension map, matching the binary codec's treatment of
// vendor fields. Domain checks are the same as for binary frames and all
// failures wrap ErrMalformed.
func DecodeJSON(raw []byte) (*PositionReport, error) {
	var d Decoder
	return d.DecodeJSON(raw)
}

// DecodeJSON parses a JSON-encoded position report using the decoder's
// defaults for absent fields.
func (d *Decoder) DecodeJSON(raw []byte) (*PositionReport, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformed, err)
	}

	r := &PositionReport{
		Callsign: d.defaultCallsign(),
		Type:     DefaultType,
	}

	for key, val := range obj {
		switch key {
		case "callsign":
			s, ok := asString(val)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			r.Callsign = strings.ToUpper(strings.TrimSpace(s))
			r.Fields |= FieldCallsign
		case "type":
			s, ok := asString(val)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			r.Type = strings.TrimSpace(s)
			r.Fields |= FieldType
		case "latitude":
			f, ok := asFloat(val)
			if !ok {
				return nil, fmt.Errorf("%w: latitude %v is not a number", ErrMalformed, val)
			}
			r.Latitude = f
			r.Fields |= FieldPosition
		case "longitude":
			f, ok := asFloat(val)
			if !ok {
				return nil, fmt.Errorf("%w: longitude %v is not a number", ErrMalformed, val)
			}
			r.Longitude = f
			r.Fields |= FieldPosition
		case "altitude":
			f, ok := asFloat(val)
			if !ok {
				return nil, fmt.Errorf("%w: altitude %v is not a number", ErrMalformed, val)
			}
			r.Altitude = f
			r.Fields |= FieldAltitude
		case "speed":
			f, ok := asFloat(val)
			if !ok {
				return nil, fmt.Errorf("%w: speed %v is not a number", ErrMalformed, val)
			}
			r.Speed = f
			r.Fields |= FieldSpeed
		case "heading":
			f, ok := asFloat(val)
			if !ok {
				return nil, fmt.Errorf("%w: heading %v is not a number", ErrMalformed, val)
			}
			r.Heading = f
			r.Fields |= FieldHeading
		case "fields", "ext":
			// Reserved by the report schema itself; a source echoing a
			// decoded report back must not corrupt the presence mask.
			if key == "ext" {
				if m, ok := val.(map[string]any); ok {
					for k, v := range m {
						if s, ok := asString(v); ok {
							r.setExt(k, s)
						}
					}
				}
			}
		default:
			if s, ok := asString(val); ok {
				r.setExt(key, s)
			}
		}
	}

	if r.Fields.has(FieldPosition) {
		if r.Latitude < -90 || r.Latitude > 90 {
			return nil, fmt.Errorf("%w: latitude %.7f out of range", ErrMalformed, r.Latitude)
		}
		if r.Longitude < -180 || r.Longitude > 180 {
			return nil, fmt.Errorf("%w: longitude %.7f out of range", ErrMalformed, r.Longitude)
		}
	}
	if r.Fields.has(FieldHeading) && (r.Heading < 0 || r.Heading >= 360) {
		return nil, fmt.Errorf("%w: heading %.2f out of range", ErrMalformed, r.Heading)
	}
	return r, nil
}

func (r *PositionReport) setExt(key, val string) {
	if r.Ext == nil {
		r.Ext = make(map[string]string)
	}
	r.Ext[key] = val
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
