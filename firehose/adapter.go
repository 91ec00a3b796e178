package firehose

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cometsh/drinkup/dispatch"
	"github.com/cometsh/drinkup/engine"
)

// Handler is invoked once per dispatched Firehose event: model.Commit,
// model.Sync, model.Identity, model.Account, or model.Info.
type Handler func(event any) error

// Config configures a Firehose stream instance.
type Config struct {
	Engine engine.Config
	// Cursor is the starting seq. Nil means subscribe from the relay's
	// live tail.
	Cursor *int64
	Handler Handler
}

// validSeq implements the spec's valid_seq? predicate (§4.2, §8
// invariant 2): accepts when last is nil and next is present; accepts
// when next is nil; accepts when both are present and next > last.
func validSeq(last, next *int64) bool {
	switch {
	case last == nil && next != nil:
		return true
	case next == nil:
		return true
	case last != nil && next != nil:
		return *next > *last
	default:
		return false
	}
}

// adapter implements engine.Adapter for the Firehose wire protocol.
type adapter struct {
	cfg    Config
	log    *logrus.Entry
	dsp    *dispatch.Dispatcher

	mu       sync.Mutex
	cursor   *int64
	eng      *engine.Engine
}

// New constructs a Firehose stream instance, wiring it to a fresh
// connection engine.
func New(cfg Config) *Stream {
	a := &adapter{
		cfg:    cfg,
		log:    cfg.Engine.WithDefaults().Log,
		cursor: cfg.Cursor,
	}
	a.dsp = dispatch.New(func(event any) error {
		if a.cfg.Handler == nil {
			return nil
		}
		return a.cfg.Handler(event)
	}, a.log)
	return &Stream{adapter: a, eng: engine.New(cfg.Engine, a)}
}

func (a *adapter) Init(eng *engine.Engine) error {
	a.eng = eng
	return nil
}

func (a *adapter) BuildPath() string {
	a.mu.Lock()
	cursor := a.cursor
	a.mu.Unlock()

	path := "/xrpc/com.atproto.sync.subscribeRepos"
	if cursor != nil {
		q := url.Values{}
		q.Set("cursor", fmt.Sprintf("%d", *cursor))
		path += "?" + q.Encode()
	}
	return path
}

func (a *adapter) OnConnected() {
	a.log.Info("drinkup/firehose: connected")
}

func (a *adapter) OnDisconnected(reason error) {
	a.log.WithError(reason).Warn("drinkup/firehose: disconnected")
}

func (a *adapter) HandleFrame(frame engine.Frame) error {
	switch frame.Kind {
	case engine.FrameBinary:
		return a.handleBinary(frame.Data)
	case engine.FrameText:
		a.log.Warn("drinkup/firehose: unexpected text frame")
		a.eng.ReleaseCredit()
		return fmt.Errorf("unexpected text frame")
	default:
		a.eng.ReleaseCredit()
		return nil
	}
}

// handleBinary guarantees exactly one ReleaseCredit call: synchronously
// on every dropped-frame path, or via the dispatcher's done callback
// once an event handler actually completes (spec §1, §5 back-pressure).
func (a *adapter) handleBinary(data []byte) error {
	asyncPending := false
	defer func() {
		if !asyncPending {
			a.eng.ReleaseCredit()
		}
	}()

	header, payload, err := decodeFrame(data)
	if err != nil {
		a.log.WithError(err).Debug("drinkup/firehose: frame decode failed")
		return err
	}

	op, _ := headerOp(header)
	t, _ := headerType(header)

	if op == -1 {
		a.log.WithFields(logrus.Fields{"t": t, "payload": payload}).Warn("drinkup/firehose: error op")
		return nil
	}

	var seqPtr *int64
	if seq, ok := payload["seq"]; ok {
		if s, ok2 := asInt64Any(seq); ok2 {
			seqPtr = &s
		}
	}

	a.mu.Lock()
	last := a.cursor
	ok := validSeq(last, seqPtr)
	a.mu.Unlock()
	if !ok {
		a.log.WithFields(logrus.Fields{"last": derefI64(last), "seq": derefI64(seqPtr)}).
			Warn("drinkup/firehose: out-of-sequence frame dropped")
		return nil
	}

	event, buildErr := a.buildEvent(t, payload)
	if buildErr != nil {
		a.log.WithError(buildErr).WithField("t", t).Debug("drinkup/firehose: event parse failed")
		return buildErr
	}
	if event == nil {
		a.log.WithField("t", t).Warn("drinkup/firehose: unknown event type")
		return nil
	}

	asyncPending = true
	a.dsp.Dispatch(event, func(dispatch.Outcome) { a.eng.ReleaseCredit() })

	if seqPtr != nil {
		a.mu.Lock()
		a.cursor = seqPtr
		a.mu.Unlock()
	}
	return nil
}

func (a *adapter) buildEvent(t string, payload map[string]any) (any, error) {
	switch t {
	case "#commit":
		return parseCommit(payload)
	case "#sync":
		return parseSync(payload)
	case "#identity":
		return parseIdentity(payload)
	case "#account":
		return parseAccount(payload)
	case "#info":
		return parseInfo(payload)
	default:
		return nil, nil
	}
}

func headerOp(header map[string]any) (int64, bool) {
	v, ok := header["op"]
	if !ok {
		return 0, false
	}
	return asInt64Any(v)
}

func headerType(header map[string]any) (string, bool) {
	v, ok := header["t"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func asInt64Any(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func derefI64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
