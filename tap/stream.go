// Package tap implements the Tap adapter: JSON event ingestion over a
// WebSocket channel with per-event acking, plus a companion HTTP admin
// client (spec §4.4).
package tap

import (
	"context"

	"github.com/cometsh/drinkup/engine"
)

// Stream is a running Tap subscription. Construct with New, then call
// Start. Admin is ready to use immediately, independent of the
// WebSocket connection's lifecycle.
type Stream struct {
	adapter *adapter
	eng     *engine.Engine

	Admin *AdminClient
}

// Start connects to the Tap channel and begins dispatching events.
func (s *Stream) Start(ctx context.Context) error {
	return s.eng.Start(ctx)
}

// Stop tears down the connection and stops reconnecting.
func (s *Stream) Stop() {
	s.eng.Stop()
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
