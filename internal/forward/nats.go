package forward

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"prd_gateway/internal/adsb"
)

// DefaultSubject is the NATS subject aircraft states are published to when
// none is configured.
const DefaultSubject = "adsb.aircraft"

// NATSSink publishes each aircraft state as JSON to a NATS subject.
type NATSSink struct {
	nc      *nats.Conn
	subject string
	owned   bool
}

// NewNATSSink connects to a NATS server and publishes to subject.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("prd_gateway"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	s := NewNATSSinkConn(nc, subject)
	s.owned = true
	return s, nil
}

// NewNATSSinkConn wraps an existing connection; the caller keeps ownership.
func NewNATSSinkConn(nc *nats.Conn, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{nc: nc, subject: subject}
}

func (s *NATSSink) Name() string { return "nats" }

// Deliver publishes the state. Publish is async on the client side, so a nil
// error means queued, not acknowledged; that is acceptable for this feed.
func (s *NATSSink) Deliver(_ context.Context, st adsb.AircraftState) error {
	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.nc.Publish(s.subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", s.subject, err)
	}
	return nil
}

// Close drains and closes the connection if this sink opened it.
func (s *NATSSink) Close() {
	if s.owned && s.nc != nil {
		_ = s.nc.Drain()
	}
}
