// Command-line entry point for the PRD to ADS-B gateway.
//
// The gateway listens for Position Report Datagrams (PRD) on a UDP port,
// decodes and normalizes them into the ADS-B aircraft-state schema, and
// fans the result out to the configured sinks: an HTTP endpoint, optionally
// NATS, ClickHouse, PostgreSQL, and the local state tracker behind the
// status API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "prd_gateway - commands:")
	fmt.Fprintln(w, "  serve   - receive PRD datagrams over UDP and forward ADS-B states")
	fmt.Fprintln(w, "  decode  - decode PRD frames (hex or JSON lines) and print ADS-B JSON")
	fmt.Fprintln(w, "  encode  - build a PRD frame from flags and print it as hex")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  prd_gateway serve [-host H] [-port P] [-adsb-host H] [-adsb-port P] [...]")
	fmt.Fprintln(w, "  prd_gateway decode -input frames.txt [-output out.json] [-pretty] [-stats]")
	fmt.Fprintln(w, "  prd_gateway encode -callsign UAL123 -lat 40.0 -lon -75.0 [...]")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	switch cmd := strings.ToLower(os.Args[1]); cmd {
	case "serve":
		runServe(context.Background(), os.Args[2:])
	case "decode":
		runDecode(os.Args[2:])
	case "encode":
		runEncode(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}
