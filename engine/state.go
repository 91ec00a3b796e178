package engine

import "fmt"

// State is one of the four states in the connection engine's state machine.
type State int

const (
	// Disconnected is the idle state: no transport, no WS stream.
	Disconnected State = iota
	// ConnectingHTTP is opening the TCP+TLS transport.
	ConnectingHTTP
	// ConnectingWS is sending the WebSocket upgrade over an open transport.
	ConnectingWS
	// Connected is a live WebSocket session, ingesting frames.
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case ConnectingHTTP:
		return "connecting_http"
	case ConnectingWS:
		return "connecting_ws"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FrameKind discriminates the inbound frame variants the engine delivers
// to an adapter's HandleFrame. The engine performs no payload parsing.
type FrameKind int

const (
	FrameBinary FrameKind = iota
	FrameText
	FrameClose
	FrameCloseWithCode
)

func (k FrameKind) String() string {
	switch k {
	case FrameBinary:
		return "binary"
	case FrameText:
		return "text"
	case FrameClose:
		return "close"
	case FrameCloseWithCode:
		return "close_with_code"
	default:
		return fmt.Sprintf("frame(%d)", int(k))
	}
}

// Frame is one inbound WebSocket message handed to an adapter.
type Frame struct {
	Kind FrameKind
	Data []byte // Binary or Text payload
	Code int    // set on FrameCloseWithCode
	Reason string
}
