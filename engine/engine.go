// Package engine implements the connection engine shared by the
// Firehose, Jetstream, and Tap adapters: a four-state machine
// (Disconnected → ConnectingHTTP → ConnectingWS → Connected) that opens
// a TLS+HTTP+WebSocket session, enforces connect/upgrade timeouts,
// detects remote close and transport drop, and schedules reconnects
// with exponential backoff and jitter.
package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrInitFailed marks an initialization-class error: DNS failure, TLS
// open failure, or adapter.Init returning an error. These are fatal —
// the engine stops itself and the caller/supervisor decides what to do
// next (spec §4.1, §7).
var ErrInitFailed = errors.New("drinkup/engine: initialization failed")

// Stats is a read-only snapshot of engine state, useful for health
// checks without pulling in a metrics exporter.
type Stats struct {
	State             State
	ReconnectAttempts int
}

// Engine drives the state machine for a single stream instance. Create
// one with New, call Start, and read Errors() for fatal failures.
type Engine struct {
	cfg     Config
	adapter Adapter

	mu       sync.Mutex
	state    State
	attempts int
	conn     *websocket.Conn
	writeMu  sync.Mutex

	credit chan struct{}

	runCancel context.CancelFunc
	wg        sync.WaitGroup
	errCh     chan error
	stopOnce  sync.Once
}

// New constructs an Engine for the given adapter. Call Start to begin
// connecting.
func New(cfg Config, adapter Adapter) *Engine {
	cfg = cfg.WithDefaults()
	return &Engine{
		cfg:     cfg,
		adapter: adapter,
		state:   Disconnected,
		errCh:   make(chan error, 1),
	}
}

// Errors delivers fatal, caller-visible failures raised after Start has
// returned: an unparseable host URL and ConnectingHTTP transport-open
// errors. adapter.Init errors are returned by Start itself and never
// appear here. Transient errors (timeouts,
// non-101 upgrades, drops) never appear here — they drive the internal
// reconnect path instead.
func (e *Engine) Errors() <-chan error {
	return e.errCh
}

// Stats returns a snapshot of the current state and reconnect counter.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{State: e.state, ReconnectAttempts: e.attempts}
}

// Start performs one-time adapter initialization and launches the engine
// task. Adapter.Init errors are returned synchronously and nothing is
// connected; all later failures surface via Errors() or the reconnect
// path.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.adapter.Init(e); err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	e.credit = make(chan struct{}, e.cfg.FlowCredit)
	for i := 0; i < e.cfg.FlowCredit; i++ {
		e.credit <- struct{}{}
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.runCancel = cancel

	e.wg.Add(1)
	go e.run(runCtx)
	return nil
}

// Stop halts the engine task, closing any live connection and cancelling
// a pending reconnect timer. Outstanding dispatcher goroutines are left
// to finish on their own (fire-and-forget).
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.runCancel != nil {
			e.runCancel()
		}
	})
	e.wg.Wait()
}

// ReleaseCredit returns one unit of ingress flow credit. Adapters call
// this once a dispatched event's handler has actually completed, so a
// slow consumer eventually stalls the engine's read loop rather than
// buffering unbounded events in memory. Safe to call on a nil Engine, so
// adapter unit tests can exercise HandleFrame without a running engine.
func (e *Engine) ReleaseCredit() {
	if e == nil {
		return
	}
	select {
	case e.credit <- struct{}{}:
	default:
	}
}

// Send transmits one outbound WebSocket frame (text or binary) over the
// live connection. Used by Jetstream's options-update and Tap's acks.
// Returns an error if the engine is not currently connected, including
// when called on a nil Engine.
func (e *Engine) Send(data []byte, text bool) error {
	if e == nil {
		return fmt.Errorf("drinkup/engine: not connected (nil engine)")
	}
	e.mu.Lock()
	conn := e.conn
	state := e.state
	e.mu.Unlock()

	if state != Connected || conn == nil {
		return fmt.Errorf("drinkup/engine: not connected (state=%s)", state)
	}

	msgType := websocket.BinaryMessage
	if text {
		msgType = websocket.TextMessage
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return conn.WriteMessage(msgType, data)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) fatal(err error) {
	select {
	case e.errCh <- fmt.Errorf("%w: %w", ErrInitFailed, err):
	default:
	}
	if e.runCancel != nil {
		e.runCancel()
	}
}

// run is the engine task: it owns the state machine, the transport, and
// all ingress processing, serialized on this single goroutine.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			e.teardown()
			return
		default:
		}

		e.setState(ConnectingHTTP)
		conn, err, fatal := e.dialAndUpgrade(ctx)
		if err != nil {
			if fatal {
				e.fatal(err)
				e.setState(Disconnected)
				return
			}
			// Transient: connect_timeout expiry, non-101 upgrade,
			// upgrade_timeout, or an upgrade-phase transport error.
			e.reconnectWait(ctx, err)
			continue
		}

		e.mu.Lock()
		e.conn = conn
		e.state = Connected
		e.attempts = 0
		e.mu.Unlock()

		e.adapter.OnConnected()

		dropErr := e.ingest(ctx, conn)

		e.mu.Lock()
		e.conn = nil
		e.mu.Unlock()
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return
		default:
		}

		e.reconnectWait(ctx, dropErr)
	}
}

func (e *Engine) teardown() {
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.state = Disconnected
	e.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// reconnectWait runs the reconnect path: notify the adapter, compute
// backoff, and sleep (or return early on Stop).
func (e *Engine) reconnectWait(ctx context.Context, reason error) {
	e.adapter.OnDisconnected(reason)

	e.mu.Lock()
	attempt := e.attempts
	e.attempts++
	e.state = Disconnected
	e.mu.Unlock()

	delay := e.cfg.Reconnect.Delay(attempt)
	e.cfg.Log.WithFields(map[string]interface{}{
		"attempt": attempt,
		"delay":   delay,
	}).Warn("drinkup: scheduling reconnect")

	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

// dialAndUpgrade performs the ConnectingHTTP and ConnectingWS phases.
// The returned bool is true iff the failure is initialization-class
// (fatal, not retried).
func (e *Engine) dialAndUpgrade(ctx context.Context) (*websocket.Conn, error, bool) {
	u, err := url.Parse(e.cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", e.cfg.Host, err), true
	}

	useTLS := u.Scheme == "https" || u.Scheme == "wss"
	hostport := u.Host
	if _, _, splitErr := net.SplitHostPort(hostport); splitErr != nil {
		if useTLS {
			hostport = net.JoinHostPort(hostport, "443")
		} else {
			hostport = net.JoinHostPort(hostport, "80")
		}
	}

	// ConnectingHTTP: raw TCP+TLS, bounded by ConnectTimeout.
	connectCtx, cancel := context.WithTimeout(ctx, e.cfg.ConnectTimeout)
	defer cancel()

	var rawConn net.Conn
	nd := &net.Dialer{}
	if useTLS {
		tlsConf := e.cfg.TLS.buildConfig(u.Hostname())
		rawConn, err = (&tls.Dialer{NetDialer: nd, Config: tlsConf}).DialContext(connectCtx, "tcp", hostport)
	} else {
		rawConn, err = nd.DialContext(connectCtx, "tcp", hostport)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("connect_timeout expired: %w", err), false
		}
		return nil, fmt.Errorf("transport open failed: %w", err), true
	}
	e.setState(ConnectingWS)

	// ConnectingWS: upgrade over the already-open transport, bounded by
	// UpgradeTimeout.
	upgradeCtx, cancel2 := context.WithTimeout(ctx, e.cfg.UpgradeTimeout)
	defer cancel2()

	wsScheme := "ws"
	if useTLS {
		wsScheme = "wss"
	}
	path := e.adapter.BuildPath()
	wsURL := wsScheme + "://" + u.Host + path

	dialer := &websocket.Dialer{
		NetDialContext: func(context.Context, string, string) (net.Conn, error) {
			return rawConn, nil
		},
		HandshakeTimeout: e.cfg.UpgradeTimeout,
	}

	headers := http.Header{}
	headers.Set("User-Agent", e.cfg.UserAgent)
	for k, vs := range e.cfg.Headers {
		for _, v := range vs {
			headers.Add(k, v)
		}
	}

	conn, _, dialErr := dialer.DialContext(upgradeCtx, wsURL, headers)
	if dialErr != nil {
		_ = rawConn.Close()
		return nil, fmt.Errorf("websocket upgrade failed: %w", dialErr), false
	}
	return conn, nil, false
}

// ingest is the Connected-state read loop: take one unit of flow credit
// per read, hand each frame to the adapter (which returns the credit),
// detect remote close / transport drop.
func (e *Engine) ingest(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.credit:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			// No frame reaches the adapter, so return the credit here.
			e.ReleaseCredit()
			closeErr, isClose := err.(*websocket.CloseError)
			if isClose {
				return fmt.Errorf("remote close (code=%d reason=%q): %w", closeErr.Code, closeErr.Text, err)
			}
			return fmt.Errorf("transport drop: %w", err)
		}

		var frame Frame
		switch msgType {
		case websocket.BinaryMessage:
			frame = Frame{Kind: FrameBinary, Data: data}
		case websocket.TextMessage:
			frame = Frame{Kind: FrameText, Data: data}
		default:
			e.ReleaseCredit()
			continue
		}

		// HandleFrame is responsible for eventually releasing this
		// credit unit: synchronously if the frame is dropped, or via
		// ReleaseCredit once a dispatched handler completes. This is
		// the engine's only back-pressure mechanism (spec §1, §5).
		if handleErr := e.adapter.HandleFrame(frame); handleErr != nil {
			e.cfg.Log.WithError(handleErr).Debug("drinkup: frame dropped")
		}
	}
}
