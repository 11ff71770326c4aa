// Package forward delivers normalized aircraft states to downstream
// consumers. Delivery is fire-and-forget: a failed sink is logged and the
// message dropped, never retried, and never allowed to stop the receive loop.
package forward

import (
	"context"
	"log"

	"prd_gateway/internal/adsb"
)

// Sink consumes normalized aircraft states.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Deliver sends one aircraft state downstream.
	Deliver(ctx context.Context, st adsb.AircraftState) error
}

// Fanout delivers each state to every sink in order. Sinks fail
// independently: an error from one is logged and the rest still run.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a fanout over the given sinks. Nil sinks are skipped.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Add appends a sink. Not safe to call once delivery has started.
func (f *Fanout) Add(s Sink) {
	if s != nil {
		f.sinks = append(f.sinks, s)
	}
}

// Len returns the number of attached sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

// Deliver sends st to every sink, logging per-sink failures.
func (f *Fanout) Deliver(ctx context.Context, st adsb.AircraftState) {
	for _, s := range f.sinks {
		if err := s.Deliver(ctx, st); err != nil {
			log.Printf("forward: %s: %s: %v", s.Name(), st.Callsign, err)
		}
	}
}
