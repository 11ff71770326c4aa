package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"prd_gateway/internal/adsb"
	"prd_gateway/internal/icons"
	"prd_gateway/internal/prd"
)

type decodeOut struct {
	Report *prd.PositionReport `json:"report"`
	State  adsb.AircraftState  `json:"state"`
}

type decodeStats struct {
	Lines     int
	Decoded   int
	Malformed int
	Skipped   int
}

// runDecode reads one frame per line — hex-encoded binary PRD or a JSON
// object — and prints the decoded report plus its normalized state.
func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	inPath := fs.String("input", "", "Input file, one frame per line (default: stdin)")
	outPath := fs.String("output", "", "Output JSON file (default: stdout)")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	showStats := fs.Bool("stats", false, "Print basic counters to stderr")
	callsign := fs.String("callsign", "", "Default callsign for frames that carry none")
	iconPath := fs.String("icons", "config/callsigns_to_icons.yaml", "Callsign-to-icon YAML document")
	_ = fs.Parse(args)

	table, err := icons.Load(*iconPath)
	if err != nil {
		log.Fatalf("decode: %v", err)
	}
	norm := adsb.NewNormalizer(table)
	dec := prd.Decoder{DefaultCallsign: *callsign}

	var r io.Reader = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			log.Fatalf("decode: open input: %v", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	out := make([]decodeOut, 0, 64)
	st := &decodeStats{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		st.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			st.Skipped++
			continue
		}

		report, err := decodeLine(&dec, line)
		if err != nil {
			st.Malformed++
			fmt.Fprintf(os.Stderr, "line %d: %v\n", st.Lines, err)
			continue
		}
		st.Decoded++
		out = append(out, decodeOut{Report: report, State: norm.Normalize(report)})
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("decode: read input: %v", err)
	}

	var w io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("decode: create output: %v", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	var enc []byte
	if *pretty {
		enc, err = json.MarshalIndent(out, "", "  ")
	} else {
		enc, err = json.Marshal(out)
	}
	if err != nil {
		log.Fatalf("decode: encode output: %v", err)
	}
	_, _ = w.Write(enc)
	if w == os.Stdout {
		_, _ = w.Write([]byte("\n"))
	}

	if *showStats {
		fmt.Fprintf(os.Stderr, "stats: lines=%d decoded=%d malformed=%d skipped=%d\n",
			st.Lines, st.Decoded, st.Malformed, st.Skipped)
	}
}

func decodeLine(dec *prd.Decoder, line string) (*prd.PositionReport, error) {
	if strings.HasPrefix(line, "{") {
		return dec.DecodeJSON([]byte(line))
	}
	raw, err := hex.DecodeString(strings.ReplaceAll(line, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("not hex or JSON: %w", err)
	}
	return dec.Decode(raw)
}
