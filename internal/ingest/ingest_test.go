package ingest

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"prd_gateway/internal/adsb"
	"prd_gateway/internal/forward"
	"prd_gateway/internal/icons"
	"prd_gateway/internal/prd"
)

type captureSink struct {
	mu     sync.Mutex
	states []adsb.AircraftState
	gotOne chan struct{}
}

func newCaptureSink() *captureSink {
	return &captureSink{gotOne: make(chan struct{}, 64)}
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Deliver(_ context.Context, st adsb.AircraftState) error {
	c.mu.Lock()
	c.states = append(c.states, st)
	c.mu.Unlock()
	c.gotOne <- struct{}{}
	return nil
}

func (c *captureSink) all() []adsb.AircraftState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]adsb.AircraftState{}, c.states...)
}

func testServer(sink forward.Sink) *Server {
	table := icons.New(map[string]string{"UAL123": "icons/ual.svg"}, "")
	norm := adsb.NewNormalizer(table)
	return NewServer(Config{Workers: 2}, norm, forward.NewFanout(sink))
}

func encodeFull(t *testing.T) []byte {
	t.Helper()
	raw, err := prd.Encode(&prd.PositionReport{
		Callsign:  "UAL123",
		Type:      "B738",
		Latitude:  40.0,
		Longitude: -75.0,
		Altitude:  35000,
		Speed:     450,
		Heading:   270,
		Fields: prd.FieldCallsign | prd.FieldType | prd.FieldPosition |
			prd.FieldAltitude | prd.FieldSpeed | prd.FieldHeading,
	})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	return raw
}

func TestProcessBinaryDatagram(t *testing.T) {
	sink := newCaptureSink()
	s := testServer(sink)

	s.Process(context.Background(), encodeFull(t))

	states := sink.all()
	if len(states) != 1 {
		t.Fatalf("delivered %d states, want 1", len(states))
	}
	if states[0].Callsign != "UAL123" || states[0].Icon != "icons/ual.svg" {
		t.Errorf("state = %+v", states[0])
	}

	st := s.Stats()
	if st.Received != 0 || st.Decoded != 1 || st.Malformed != 0 {
		t.Errorf("Stats() = %+v, want decoded=1", st)
	}
}

func TestProcessJSONDatagram(t *testing.T) {
	sink := newCaptureSink()
	s := testServer(sink)

	s.Process(context.Background(), []byte(`  {"callsign":"ual123","heading":90}`))

	states := sink.all()
	if len(states) != 1 {
		t.Fatalf("delivered %d states, want 1", len(states))
	}
	if states[0].Callsign != "UAL123" || states[0].Heading != 90 {
		t.Errorf("state = %+v", states[0])
	}
}

func TestProcessMalformedDatagramKeepsServing(t *testing.T) {
	sink := newCaptureSink()
	s := testServer(sink)
	ctx := context.Background()

	s.Process(ctx, []byte{0x01, 0x02})             // too short
	s.Process(ctx, []byte(`{"heading":720}`))      // out of domain
	s.Process(ctx, encodeFull(t))                  // still works afterwards

	if got := len(sink.all()); got != 1 {
		t.Fatalf("delivered %d states, want 1", got)
	}
	st := s.Stats()
	if st.Malformed != 2 || st.Decoded != 1 {
		t.Errorf("Stats() = %+v, want malformed=2 decoded=1", st)
	}
}

func TestServeOverUDP(t *testing.T) {
	sink := newCaptureSink()
	s := testServer(sink)

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, conn) }()

	client, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP() error: %v", err)
	}
	defer func() { _ = client.Close() }()

	if _, err := client.Write(encodeFull(t)); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	select {
	case <-sink.gotOne:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not shut down")
	}

	states := sink.all()
	if len(states) != 1 || states[0].Callsign != "UAL123" {
		t.Errorf("states = %+v", states)
	}
}

func TestLooksLikeJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"callsign":"X"}`, true},
		{"  \n\t{", true},
		{"PR\x01", false},
		{"", false},
		{"  ", false},
	}
	for _, tc := range tests {
		if got := looksLikeJSON([]byte(tc.raw)); got != tc.want {
			t.Errorf("looksLikeJSON(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
