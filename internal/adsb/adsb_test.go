package adsb

import (
	"reflect"
	"testing"

	"prd_gateway/internal/icons"
	"prd_gateway/internal/prd"
)

func testTable() *icons.Table {
	return icons.New(map[string]string{
		"UAL123": "icons/ual.svg",
		"B738":   "icons/b738.svg",
		"N12345": "icons/ga.svg",
	}, "")
}

func TestNormalizeScenario(t *testing.T) {
	// The canonical happy path: a full report whose callsign is in the table.
	n := NewNormalizer(testTable())
	r := &prd.PositionReport{
		Callsign:  "UAL123",
		Type:      "B738",
		Latitude:  40.0,
		Longitude: -75.0,
		Altitude:  35000,
		Speed:     450,
		Heading:   270,
	}

	got := n.Normalize(r)
	want := AircraftState{
		Callsign:   "UAL123",
		Type:       "B738",
		Latitude:   40.0,
		Longitude:  -75.0,
		Altitude:   35000,
		Speed:      450,
		Heading:    270,
		Icon:       "icons/ual.svg",
		TailNumber: NoTailNumber,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestIconPrecedence(t *testing.T) {
	n := NewNormalizer(testTable())

	tests := []struct {
		name   string
		report prd.PositionReport
		want   string
	}{
		{
			name:   "callsign wins over type",
			report: prd.PositionReport{Callsign: "UAL123", Type: "B738"},
			want:   "icons/ual.svg",
		},
		{
			name:   "type when callsign unmapped",
			report: prd.PositionReport{Callsign: "DAL9", Type: "B738"},
			want:   "icons/b738.svg",
		},
		{
			name:   "default when neither mapped",
			report: prd.PositionReport{Callsign: "DAL9", Type: "Unknown"},
			want:   icons.DefaultIcon,
		},
		{
			name: "tail number overrides callsign match",
			report: prd.PositionReport{
				Callsign: "UAL123",
				Type:     "B738",
				Ext:      map[string]string{"tail_number": "N12345"},
			},
			want: "icons/ga.svg",
		},
		{
			name: "tail number overrides default",
			report: prd.PositionReport{
				Callsign: "DAL9",
				Type:     "Unknown",
				Ext:      map[string]string{"tail_number": "n12345"},
			},
			want: "icons/ga.svg",
		},
		{
			name: "unmapped tail number leaves callsign icon",
			report: prd.PositionReport{
				Callsign: "UAL123",
				Type:     "B738",
				Ext:      map[string]string{"tail_number": "N99999"},
			},
			want: "icons/ual.svg",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := n.Normalize(&tc.report)
			if got.Icon != tc.want {
				t.Errorf("Icon = %q, want %q", got.Icon, tc.want)
			}
		})
	}
}

func TestTailNumberSentinel(t *testing.T) {
	n := NewNormalizer(testTable())

	st := n.Normalize(&prd.PositionReport{Callsign: "DAL9"})
	if st.TailNumber != NoTailNumber {
		t.Errorf("TailNumber = %q, want %q", st.TailNumber, NoTailNumber)
	}

	st = n.Normalize(&prd.PositionReport{
		Callsign: "DAL9",
		Ext:      map[string]string{"tail_number": "N99999"},
	})
	if st.TailNumber != "N99999" {
		t.Errorf("TailNumber = %q, want %q", st.TailNumber, "N99999")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(testTable())
	r := &prd.PositionReport{
		Callsign: "UAL123",
		Type:     "B738",
		Heading:  359.99,
		Ext:      map[string]string{"tail_number": "N12345", "vendor_rev": "7"},
	}

	first := n.Normalize(r)
	second := n.Normalize(r)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Normalize() not idempotent:\n first = %+v\nsecond = %+v", first, second)
	}
}

func TestNormalizeCopiesExt(t *testing.T) {
	n := NewNormalizer(testTable())
	r := &prd.PositionReport{Callsign: "DAL9", Ext: map[string]string{"vendor_rev": "7"}}

	st := n.Normalize(r)
	st.Ext["vendor_rev"] = "8"
	if r.Ext["vendor_rev"] != "7" {
		t.Error("Normalize() aliased the report's extension map")
	}
}

func TestNormalizeWithNilTable(t *testing.T) {
	// An absent icon source must not prevent normalization.
	n := NewNormalizer(nil)
	st := n.Normalize(&prd.PositionReport{Callsign: "UAL123", Type: "B738"})
	if st.Icon != icons.DefaultIcon {
		t.Errorf("Icon = %q, want %q", st.Icon, icons.DefaultIcon)
	}
}

func TestDecodeNormalizeRoundTrip(t *testing.T) {
	// End to end over the binary codec: the seven base fields must come
	// through the pipeline exactly as encoded.
	r := &prd.PositionReport{
		Callsign:  "UAL123",
		Type:      "B738",
		Latitude:  40.0,
		Longitude: -75.0,
		Altitude:  35000,
		Speed:     450,
		Heading:   270,
		Fields: prd.FieldCallsign | prd.FieldType | prd.FieldPosition |
			prd.FieldAltitude | prd.FieldSpeed | prd.FieldHeading,
	}
	raw, err := prd.Encode(r)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	decoded, err := prd.Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	st := NewNormalizer(testTable()).Normalize(decoded)
	if st.Callsign != "UAL123" || st.Type != "B738" ||
		st.Latitude != 40.0 || st.Longitude != -75.0 ||
		st.Altitude != 35000 || st.Speed != 450 || st.Heading != 270 {
		t.Errorf("round trip mismatch: %+v", st)
	}
	if st.Icon != "icons/ual.svg" {
		t.Errorf("Icon = %q, want %q", st.Icon, "icons/ual.svg")
	}
	if st.TailNumber != NoTailNumber {
		t.Errorf("TailNumber = %q, want %q", st.TailNumber, NoTailNumber)
	}
}
