package engine

// Adapter is the engine↔stream contract (spec §4.1). Firehose, Jetstream,
// and Tap each implement it; the engine drives the state machine and
// delivers frames, the adapter owns decoding, cursors, and dispatch.
//
// Model by composition, not inheritance: the engine holds an Adapter
// value, never a concrete stream type.
type Adapter interface {
	// Init performs one-time setup and receives the engine so the adapter
	// can send outbound control frames later (Jetstream options-update,
	// Tap acks). An error here aborts startup before any connection is
	// attempted.
	Init(eng *Engine) error

	// BuildPath returns the upgrade path (with query string) for the next
	// (re)connect attempt. Called on every connect and reconnect so
	// adapters can embed the current cursor.
	BuildPath() string

	// OnConnected is called once the WebSocket upgrade completes.
	OnConnected()

	// OnDisconnected is called when the engine is about to tear the
	// connection down and attempt a reconnect.
	OnDisconnected(reason error)

	// HandleFrame processes one inbound frame. A returned error is logged
	// and the frame is dropped; it never tears down the connection. Only
	// transport-level failures (detected by the engine itself) do that.
	HandleFrame(frame Frame) error
}
