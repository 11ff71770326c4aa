// Package ingest receives PRD datagrams over UDP and drives them through the
// decode/normalize pipeline to the configured sinks.
package ingest

import (
	"context"
	"fmt"
	"log"
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"prd_gateway/internal/adsb"
	"prd_gateway/internal/forward"
	"prd_gateway/internal/prd"
)

// readBufSize comfortably exceeds the max PRD frame; anything longer than a
// full read is not a frame we could decode anyway.
const readBufSize = 2048

// Config holds receiver settings.
type Config struct {
	Host string // bind host
	Port int    // bind port

	// Workers is the number of concurrent decode/normalize workers.
	// Zero means one per CPU.
	Workers int

	// DefaultCallsign substitutes an absent callsign in decoded frames.
	DefaultCallsign string
}

// Stats are the receiver's monotonic counters.
type Stats struct {
	Received  uint64 `json:"received"`
	Decoded   uint64 `json:"decoded"`
	Malformed uint64 `json:"malformed"`
}

// Server is the UDP receiver. Decode and normalize are pure functions over
// immutable inputs, so any number of workers process datagrams concurrently
// with no locking; only the counters are shared.
type Server struct {
	cfg    Config
	dec    prd.Decoder
	norm   *adsb.Normalizer
	fanout *forward.Fanout

	received  atomic.Uint64
	decoded   atomic.Uint64
	malformed atomic.Uint64
}

// NewServer builds a receiver delivering normalized states to fanout.
func NewServer(cfg Config, norm *adsb.Normalizer, fanout *forward.Fanout) *Server {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Server{
		cfg:    cfg,
		dec:    prd.Decoder{DefaultCallsign: cfg.DefaultCallsign},
		norm:   norm,
		fanout: fanout,
	}
}

// Listen binds the UDP socket.
func (s *Server) Listen() (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("resolve %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	_ = conn.SetReadBuffer(1024 * 1024)
	return conn, nil
}

// Run binds the socket and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	conn, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, conn)
}

// Serve reads datagrams from conn until ctx is cancelled. Each datagram is
// handed to a worker; a malformed one is counted, logged and dropped, and the
// loop keeps serving.
func (s *Server) Serve(ctx context.Context, conn *net.UDPConn) error {
	log.Printf("ingest: listening for PRD datagrams on %s", conn.LocalAddr())

	datagrams := make(chan []byte, 4*s.cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range datagrams {
				s.Process(ctx, raw)
			}
		}()
	}

	// Unblock the read when the context ends.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	buf := make([]byte, readBufSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			close(stop)
			close(datagrams)
			wg.Wait()
			if ctx.Err() != nil {
				log.Printf("ingest: shutting down")
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}
		s.received.Add(1)

		raw := make([]byte, n)
		copy(raw, buf[:n])

		select {
		case datagrams <- raw:
		default:
			// Workers are saturated; decode inline rather than buffer
			// without bound. UDP senders get no backpressure either way.
			s.Process(ctx, raw)
		}
	}
}

// Process decodes, normalizes and delivers one datagram.
func (s *Server) Process(ctx context.Context, raw []byte) {
	report, err := s.decode(raw)
	if err != nil {
		s.malformed.Add(1)
		log.Printf("ingest: dropping datagram: %v", err)
		return
	}
	s.decoded.Add(1)

	st := s.norm.Normalize(report)
	s.fanout.Deliver(ctx, st)
}

// decode autodetects the datagram encoding: JSON objects from sources that
// emit text, binary PRD frames from everything else.
func (s *Server) decode(raw []byte) (*prd.PositionReport, error) {
	if looksLikeJSON(raw) {
		return s.dec.DecodeJSON(raw)
	}
	return s.dec.Decode(raw)
}

func looksLikeJSON(raw []byte) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// Stats returns a snapshot of the receiver's counters.
func (s *Server) Stats() Stats {
	return Stats{
		Received:  s.received.Load(),
		Decoded:   s.decoded.Load(),
		Malformed: s.malformed.Load(),
	}
}
