package tap

import (
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/cometsh/drinkup/dispatch"
	"github.com/cometsh/drinkup/engine"
)

// Handler is invoked once per dispatched Tap event: model.TapRecord or
// model.TapIdentity. Its return value decides ack/nack (spec §4.4): a
// nil error acks; a non-nil error or a panic does not.
type Handler func(event any) error

// Config configures a Tap stream instance.
type Config struct {
	Engine engine.Config

	// AdminPassword, if set, is sent as HTTP Basic "admin:<password>" on
	// both the WebSocket upgrade and every admin HTTP request.
	AdminPassword *string
	// DisableAcks suppresses all ack emission regardless of handler
	// outcome (spec §4.4).
	DisableAcks bool

	Handler Handler
}

type adapter struct {
	cfg Config
	log *logrus.Entry
	dsp *dispatch.Dispatcher
	eng *engine.Engine

	mu     sync.Mutex
	seen   map[int64]struct{}
}

// New constructs a Tap stream instance, wiring it to a fresh connection
// engine and a companion AdminClient.
func New(cfg Config) *Stream {
	if cfg.AdminPassword != nil {
		if cfg.Engine.Headers == nil {
			cfg.Engine.Headers = http.Header{}
		}
		cfg.Engine.Headers.Set("Authorization", basicAuthHeader(*cfg.AdminPassword))
	}

	a := &adapter{
		cfg:  cfg,
		log:  cfg.Engine.WithDefaults().Log,
		seen: make(map[int64]struct{}),
	}
	a.dsp = dispatch.New(func(event any) error {
		if a.cfg.Handler == nil {
			return nil
		}
		return a.cfg.Handler(event)
	}, a.log)

	admin := newAdminClient(cfg.Engine.Host, cfg.AdminPassword)
	return &Stream{adapter: a, eng: engine.New(cfg.Engine, a), Admin: admin}
}

func basicAuthHeader(password string) string {
	token := base64.StdEncoding.EncodeToString([]byte("admin:" + password))
	return "Basic " + token
}

func (a *adapter) Init(eng *engine.Engine) error {
	a.eng = eng
	return nil
}

func (a *adapter) BuildPath() string {
	return "/channel"
}

func (a *adapter) OnConnected() {
	a.log.Info("drinkup/tap: connected")
}

func (a *adapter) OnDisconnected(reason error) {
	a.log.WithError(reason).Warn("drinkup/tap: disconnected")
}

type inboundEnvelope struct {
	ID       int64          `json:"id"`
	Type     string         `json:"type"`
	Record   map[string]any `json:"record"`
	Identity map[string]any `json:"identity"`
}

// HandleFrame guarantees exactly one ReleaseCredit call, same contract
// as the firehose and jetstream adapters: synchronously on a dropped
// frame, or via onOutcome once the dispatched handler completes.
func (a *adapter) HandleFrame(frame engine.Frame) error {
	if frame.Kind != engine.FrameText {
		a.eng.ReleaseCredit()
		return nil
	}

	var env inboundEnvelope
	if err := json.Unmarshal(frame.Data, &env); err != nil {
		a.log.WithError(err).Debug("drinkup/tap: JSON decode failed")
		a.eng.ReleaseCredit()
		return err
	}

	var event any
	var err error
	switch env.Type {
	case "record":
		event, err = buildRecord(env.ID, env.Record)
	case "identity":
		event, err = buildIdentity(env.ID, env.Identity)
	default:
		a.log.WithField("type", env.Type).Warn("drinkup/tap: unknown event type")
		a.eng.ReleaseCredit()
		return nil
	}
	if err != nil {
		a.log.WithError(err).WithField("id", env.ID).Debug("drinkup/tap: event parse failed")
		a.eng.ReleaseCredit()
		return err
	}

	a.dsp.Dispatch(event, func(outcome dispatch.Outcome) {
		a.onOutcome(env.ID, outcome)
	})
	return nil
}

func (a *adapter) onOutcome(id int64, outcome dispatch.Outcome) {
	defer a.eng.ReleaseCredit()

	if a.cfg.DisableAcks {
		return
	}
	if outcome != dispatch.OutcomeOK {
		// Error or panic: no ack, server retries after its own timeout.
		return
	}

	a.mu.Lock()
	_, already := a.seen[id]
	a.seen[id] = struct{}{}
	a.mu.Unlock()
	if already {
		a.log.WithField("id", id).Warn("drinkup/tap: duplicate ack suppressed")
		return
	}

	ack, err := json.Marshal(map[string]any{"type": "ack", "id": id})
	if err != nil {
		a.log.WithError(err).Error("drinkup/tap: marshal ack failed")
		return
	}
	if err := a.eng.Send(ack, true); err != nil {
		a.log.WithError(err).Warn("drinkup/tap: send ack failed")
	}
}
