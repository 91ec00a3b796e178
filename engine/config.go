package engine

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the engine's immutable-after-start configuration (spec §3).
type Config struct {
	// Host is the scheme+host+port the engine dials, e.g. "wss://jetstream2.us-east.bsky.network".
	Host string

	// ConnectTimeout bounds the TCP+TLS dial. Default 5s.
	ConnectTimeout time.Duration
	// UpgradeTimeout bounds the WebSocket upgrade handshake. Default 5s.
	UpgradeTimeout time.Duration

	// FlowCredit bounds the number of dispatched events an adapter may
	// have in flight before the engine's read loop blocks on ingesting
	// the next frame — the only back-pressure mechanism this library
	// implements (spec §1 Non-goals: "no back-pressure beyond per-frame
	// transport flow control"). Default 10.
	FlowCredit int

	// TLS controls peer verification. Zero value verifies against the
	// system CA bundle with hostname matching.
	TLS TLSOptions

	// Reconnect selects the backoff strategy. Nil defaults to
	// Exponential{MaxBackoff: 60s}.
	Reconnect Strategy

	// Log receives engine-internal diagnostics (decode errors, protocol
	// violations, reconnect attempts). Nil defaults to logrus's standard
	// logger.
	Log *logrus.Entry

	// UserAgent is sent on the WebSocket upgrade request.
	UserAgent string

	// Headers carries adapter-supplied request headers for the upgrade,
	// e.g. Tap's HTTP Basic admin credential (spec §4.4). Nil for
	// adapters that need none.
	Headers http.Header
}

// WithDefaults returns a copy of c with zero-valued fields replaced by
// their documented defaults.
func (c Config) WithDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.UpgradeTimeout <= 0 {
		c.UpgradeTimeout = 5 * time.Second
	}
	if c.FlowCredit <= 0 {
		c.FlowCredit = 10
	}
	if c.Reconnect == nil {
		c.Reconnect = Exponential{MaxBackoff: 60 * time.Second}
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger().WithField("component", "drinkup-engine")
	}
	if c.UserAgent == "" {
		c.UserAgent = "drinkup/1 (+github.com/cometsh/drinkup)"
	}
	return c
}
