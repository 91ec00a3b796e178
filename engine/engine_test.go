package engine_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cometsh/drinkup/engine"
)

type recordingAdapter struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	frames      [][]byte
	path        string
	eng         *engine.Engine
	initErr     error
}

func (a *recordingAdapter) Init(eng *engine.Engine) error {
	a.eng = eng
	return a.initErr
}

func (a *recordingAdapter) BuildPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.path == "" {
		return "/subscribe"
	}
	return a.path
}

func (a *recordingAdapter) OnConnected() {
	a.mu.Lock()
	a.connects++
	a.mu.Unlock()
}

func (a *recordingAdapter) OnDisconnected(reason error) {
	a.mu.Lock()
	a.disconnects++
	a.mu.Unlock()
}

func (a *recordingAdapter) HandleFrame(f engine.Frame) error {
	a.mu.Lock()
	a.frames = append(a.frames, append([]byte(nil), f.Data...))
	a.mu.Unlock()
	return nil
}

func (a *recordingAdapter) frameCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.frames)
}

func (a *recordingAdapter) connectCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connects
}

func (a *recordingAdapter) disconnectCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disconnects
}

var upgrader = websocket.Upgrader{}

func newEchoServer(t *testing.T, onUpgrade func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		onUpgrade(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsHost(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return srv.URL
}

func TestEngine_ConnectsAndDeliversFrames(t *testing.T) {
	srv := newEchoServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`))
		time.Sleep(50 * time.Millisecond)
	})

	adapter := &recordingAdapter{}
	eng := engine.New(engine.Config{Host: wsHost(t, srv)}, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, eng.Start(ctx))
	defer eng.Stop()

	assert.Eventually(t, func() bool { return adapter.frameCount() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, adapter.connectCount())
}

func TestEngine_ReconnectsAfterTransportDrop(t *testing.T) {
	srv := newEchoServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	adapter := &recordingAdapter{}
	cfg := engine.Config{
		Host:      wsHost(t, srv),
		Reconnect: engine.Custom{Fn: func(int) time.Duration { return 5 * time.Millisecond }},
	}
	eng := engine.New(cfg, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, eng.Start(ctx))
	defer eng.Stop()

	assert.Eventually(t, func() bool { return adapter.connectCount() >= 2 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, adapter.disconnectCount(), 1)
}

func TestEngine_InitErrorAbortsStart(t *testing.T) {
	adapter := &recordingAdapter{initErr: assert.AnError}
	eng := engine.New(engine.Config{Host: "http://127.0.0.1:0"}, adapter)

	err := eng.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInitFailed)
}

func TestEngine_SendFailsWhenNotConnected(t *testing.T) {
	adapter := &recordingAdapter{}
	eng := engine.New(engine.Config{Host: "http://127.0.0.1:0"}, adapter)
	err := eng.Send([]byte("hi"), true)
	assert.Error(t, err)
}

func TestEngine_Stats(t *testing.T) {
	adapter := &recordingAdapter{}
	eng := engine.New(engine.Config{Host: "http://127.0.0.1:0"}, adapter)
	stats := eng.Stats()
	assert.Equal(t, engine.Disconnected, stats.State)
	assert.Equal(t, 0, stats.ReconnectAttempts)
}
