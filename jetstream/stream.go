// Package jetstream implements the Jetstream adapter: filter query
// building, zstd-with-dictionary + JSON frame decoding, time_us cursor
// tracking, and the outbound options-update control frame (spec §4.3).
package jetstream

import (
	"context"

	"github.com/cometsh/drinkup/engine"
)

// Stream is a running Jetstream subscription. Construct with New, then
// call Start.
type Stream struct {
	adapter *adapter
	eng     *engine.Engine
}

// Start connects and begins dispatching events.
func (s *Stream) Start(ctx context.Context) error {
	return s.eng.Start(ctx)
}

// Stop tears down the connection and stops reconnecting.
func (s *Stream) Stop() {
	s.eng.Stop()
}

// UpdateOptions pushes a live filter update over the open connection.
func (s *Stream) UpdateOptions(wantedCollections, wantedDids *[]string, maxMessageSizeBytes *int) error {
	return s.adapter.UpdateOptions(wantedCollections, wantedDids, maxMessageSizeBytes)
}

// Cursor returns the current time_us, or nil if no event has been
// dispatched yet.
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
