package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"prd_gateway/internal/prd"
)

// runEncode builds a valid PRD frame from flags and prints it as hex.
// Presence bits are set only for flags actually given, so the output can
// exercise the decoder's default handling too.
func runEncode(args []string) {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	callsign := fs.String("callsign", "", "Callsign (max 8 ASCII chars)")
	actype := fs.String("type", "", "Aircraft type designator (max 4 ASCII chars)")
	lat := fs.Float64("lat", 0, "Latitude, degrees")
	lon := fs.Float64("lon", 0, "Longitude, degrees")
	alt := fs.Float64("alt", 0, "Altitude, feet")
	speed := fs.Float64("speed", 0, "Ground speed, knots")
	heading := fs.Float64("heading", 0, "Heading, degrees [0,360)")
	tail := fs.String("tail", "", "Tail number (tail_number extension)")

	ext := map[string]string{}
	fs.Func("ext", "Extension entry as key=value (repeatable)", func(s string) error {
		key, val, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return fmt.Errorf("want key=value, got %q", s)
		}
		ext[key] = val
		return nil
	})
	_ = fs.Parse(args)

	r := &prd.PositionReport{
		Callsign: *callsign,
		Type:     *actype,
		Heading:  *heading,
		Speed:    *speed,
		Altitude: *alt,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "callsign":
			r.Fields |= prd.FieldCallsign
		case "type":
			r.Fields |= prd.FieldType
		case "lat", "lon":
			r.Fields |= prd.FieldPosition
		case "alt":
			r.Fields |= prd.FieldAltitude
		case "speed":
			r.Fields |= prd.FieldSpeed
		case "heading":
			r.Fields |= prd.FieldHeading
		}
	})
	if r.Has(prd.FieldPosition) {
		r.Latitude, r.Longitude = *lat, *lon
	}
	if *tail != "" {
		ext["tail_number"] = *tail
	}
	if len(ext) > 0 {
		r.Ext = ext
	}

	raw, err := prd.Encode(r)
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Fprintln(os.Stdout, hex.EncodeToString(raw))
}
