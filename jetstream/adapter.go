package jetstream

import (
	"fmt"
	"net/url"
	"strconv"
	"sync"

	jsmodels "github.com/bluesky-social/jetstream/pkg/models"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/cometsh/drinkup/dispatch"
	"github.com/cometsh/drinkup/engine"
)

// Handler is invoked once per dispatched Jetstream event:
// model.JetstreamCommit, model.JetstreamIdentity, or model.JetstreamAccount.
type Handler func(event any) error

// Config configures a Jetstream stream instance.
type Config struct {
	Engine engine.Config

	WantedCollections   []string
	WantedDids          []string
	Cursor              *int64
	RequireHello        bool
	MaxMessageSizeBytes *int

	Handler Handler
}

type adapter struct {
	cfg Config
	log *logrus.Entry
	dsp *dispatch.Dispatcher
	eng *engine.Engine

	mu                  sync.Mutex
	wantedCollections   []string
	wantedDids          []string
	cursor              *int64
	maxMessageSizeBytes *int
}

// New constructs a Jetstream stream instance, wiring it to a fresh
// connection engine.
func New(cfg Config) *Stream {
	a := &adapter{
		cfg:                 cfg,
		log:                 cfg.Engine.WithDefaults().Log,
		wantedCollections:   cfg.WantedCollections,
		wantedDids:          cfg.WantedDids,
		cursor:              cfg.Cursor,
		maxMessageSizeBytes: cfg.MaxMessageSizeBytes,
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
	if _, err := decoder(); err != nil {
		return fmt.Errorf("jetstream: dictionary decoder init: %w", err)
	}
	return nil
}

func (a *adapter) BuildPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	q := url.Values{}
	q.Set("compress", "true")
	for _, c := range a.wantedCollections {
		q.Add("wantedCollections", c)
	}
	for _, d := range a.wantedDids {
		q.Add("wantedDids", d)
	}
	if a.cursor != nil {
		q.Set("cursor", strconv.FormatInt(*a.cursor, 10))
	}
	if a.maxMessageSizeBytes != nil {
		q.Set("maxMessageSizeBytes", strconv.Itoa(*a.maxMessageSizeBytes))
	}
	if a.cfg.RequireHello {
		q.Set("requireHello", "true")
	}
	return "/subscribe?" + q.Encode()
}

func (a *adapter) OnConnected() {
	a.log.Info("drinkup/jetstream: connected")
}

func (a *adapter) OnDisconnected(reason error) {
	a.log.WithError(reason).Warn("drinkup/jetstream: disconnected")
}

func (a *adapter) HandleFrame(frame engine.Frame) error {
	asyncPending := false
	defer func() {
		if !asyncPending {
			a.eng.ReleaseCredit()
		}
	}()

	var payload []byte
	switch frame.Kind {
	case engine.FrameBinary:
		dec, err := decoder()
		if err != nil {
			return err
		}
		decompressed, err := dec.DecodeAll(frame.Data, nil)
		if err != nil {
			a.log.WithError(err).Debug("drinkup/jetstream: zstd decode failed")
			return err
		}
		payload = decompressed
	case engine.FrameText:
		// Unexpected under compress=true; accepted as a fallback per
		// spec §4.3.
		payload = frame.Data
	default:
		return nil
	}

	var ev jsmodels.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		a.log.WithError(err).Debug("drinkup/jetstream: JSON decode failed")
		return err
	}

	event, err := a.buildEvent(&ev)
	if err != nil {
		a.log.WithError(err).WithField("kind", ev.Kind).Debug("drinkup/jetstream: event parse failed")
		return err
	}
	if event == nil {
		a.log.WithField("kind", ev.Kind).Warn("drinkup/jetstream: unknown event kind")
		return nil
	}

	asyncPending = true
	a.dsp.Dispatch(event, func(dispatch.Outcome) { a.eng.ReleaseCredit() })

	a.mu.Lock()
	a.cursor = &ev.TimeUS
	a.mu.Unlock()
	return nil
}

func (a *adapter) buildEvent(ev *jsmodels.Event) (any, error) {
	switch ev.Kind {
	case "commit":
		return buildCommit(ev)
	case "identity":
		return buildIdentity(ev)
	case "account":
		return buildAccount(ev)
	default:
		return nil, nil
	}
}

// optionsUpdate is the control-egress shape (spec §4.3, §6):
// {"type":"options_update","payload":{...only provided fields...}}.
type optionsUpdate struct {
	Type    string                `json:"type"`
	Payload optionsUpdatePayload  `json:"payload"`
}

type optionsUpdatePayload struct {
	WantedCollections   *[]string `json:"wantedCollections,omitempty"`
	WantedDids          *[]string `json:"wantedDids,omitempty"`
	MaxMessageSizeBytes *int      `json:"maxMessageSizeBytes,omitempty"`
}

// UpdateOptions sends a single text control frame updating the live
// filter set. A non-nil, empty slice clears that filter; a nil pointer
// leaves it unchanged. The server may reject the update by closing the
// connection, which the engine's reconnect path then handles.
func (a *adapter) UpdateOptions(wantedCollections, wantedDids *[]string, maxMessageSizeBytes *int) error {
	msg := optionsUpdate{
		Type: "options_update",
		Payload: optionsUpdatePayload{
			WantedCollections:   wantedCollections,
			WantedDids:          wantedDids,
			MaxMessageSizeBytes: maxMessageSizeBytes,
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("jetstream: marshal options_update: %w", err)
	}
	if err := a.eng.Send(data, true); err != nil {
		return fmt.Errorf("jetstream: send options_update: %w", err)
	}

	a.mu.Lock()
	if wantedCollections != nil {
		a.wantedCollections = *wantedCollections
	}
	if wantedDids != nil {
		a.wantedDids = *wantedDids
	}
	if maxMessageSizeBytes != nil {
		a.maxMessageSizeBytes = maxMessageSizeBytes
	}
	a.mu.Unlock()
	return nil
}
