// Package firehose implements the Firehose adapter: path building with
// cursor, DagCBOR+CAR frame decoding, sequence validation, and dispatch
// (spec §4.2).
package firehose

import (
	"context"

	"github.com/cometsh/drinkup/engine"
)

// Stream is a running Firehose subscription. Construct with New, then
// call Start.
type Stream struct {
	adapter *adapter
	eng     *engine.Engine
}

// Start connects to the relay and begins dispatching events.
func (s *Stream) Start(ctx context.Context) error {
	return s.eng.Start(ctx)
}

// Stop tears down the connection and stops reconnecting.
func (s *Stream) Stop() {
	s.eng.Stop()
}

// Cursor returns the current seq, or nil if no event carrying a seq has
// been dispatched yet.
func (s *Stream) Cursor() *int64 {
	s.adapter.mu.Lock()
	defer s.adapter.mu.Unlock()
	if s.adapter.cursor == nil {
		return nil
	}
	c := *s.adapter.cursor
	return &c
}

// Stats returns the underlying engine's connection state snapshot.
func (s *Stream) Stats() engine.Stats {
	return s.eng.Stats()
}

// Errors delivers fatal, caller-visible failures from the underlying
// engine (spec §7 class 1).
func (s *Stream) Errors() <-chan error {
	return s.eng.Errors()
}
