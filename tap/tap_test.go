package tap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cometsh/drinkup/dispatch"
	"github.com/cometsh/drinkup/engine"
	"github.com/cometsh/drinkup/model"
)

func TestBuildRecord_MissingFieldFails(t *testing.T) {
	_, err := buildRecord(1, map[string]any{"did": "did:plc:x"})
	assert.Error(t, err)
}

func TestBuildRecord_OK(t *testing.T) {
	rec, err := buildRecord(7, map[string]any{
		"did":        "did:plc:x",
		"collection": "app.bsky.feed.post",
		"rkey":       "abc",
		"action":     "create",
		"live":       true,
		"record":     map[string]any{"text": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.True(t, rec.Live)
	assert.Equal(t, "create", string(rec.Action))
	assert.Equal(t, "hi", rec.Record["text"])
}

func newTestAdapter(t *testing.T, handler Handler, disableAcks bool) (*adapter, *sync.WaitGroup) {
	t.Helper()
	a := &adapter{
		cfg:  Config{Handler: handler, DisableAcks: disableAcks},
		log:  logrus.StandardLogger().WithField("test", true),
		seen: make(map[int64]struct{}),
	}
	a.dsp = dispatch.New(func(event any) error {
		if a.cfg.Handler == nil {
			return nil
		}
		return a.cfg.Handler(event)
	}, a.log)
	return a, &sync.WaitGroup{}
}

func TestHandleFrame_UnknownTypeDropsAndReleases(t *testing.T) {
	a, _ := newTestAdapter(t, nil, false)
	msg, err := json.Marshal(map[string]any{"id": int64(1), "type": "bogus"})
	require.NoError(t, err)
	assert.NoError(t, a.HandleFrame(engine.Frame{Kind: engine.FrameText, Data: msg}))
}

func TestHandleFrame_ParsesRecordAndDispatches(t *testing.T) {
	var got []any
	var mu sync.Mutex
	a, _ := newTestAdapter(t, func(event any) error {
		mu.Lock()
		got = append(got, event)
		mu.Unlock()
		return nil
	}, false)

	msg, err := json.Marshal(map[string]any{
		"id":   int64(42),
		"type": "record",
		"record": map[string]any{
			"did":        "did:plc:x",
			"collection": "app.bsky.feed.post",
			"rkey":       "abc",
			"action":     "create",
		},
	})
	require.NoError(t, err)

	require.NoError(t, a.HandleFrame(engine.Frame{Kind: engine.FrameText, Data: msg}))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
}

var upgrader = websocket.Upgrader{}

// TestStream_AcksOnOkOnly replicates the spec's ack/nack scenario (§8):
// event 1's handler returns nil and event 2's returns an error; the
// server reads one frame and expects it to be the ack for id 1.
func TestStream_AcksOnOkOnly(t *testing.T) {
	var acks []int64
	var mu sync.Mutex
	serverDone := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		events := []map[string]any{
			{"id": int64(1), "type": "record", "record": map[string]any{
				"did": "did:plc:x", "collection": "c", "rkey": "ok", "action": "create",
			}},
			{"id": int64(2), "type": "record", "record": map[string]any{
				"did": "did:plc:x", "collection": "c", "rkey": "bad", "action": "create",
			}},
		}
		for _, ev := range events {
			data, _ := json.Marshal(ev)
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
		}

		for i := 0; i < 1; i++ {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var ack map[string]any
			if json.Unmarshal(data, &ack) == nil && ack["type"] == "ack" {
				mu.Lock()
				if id, ok := ack["id"].(float64); ok {
					acks = append(acks, int64(id))
				}
				mu.Unlock()
			}
		}
		close(serverDone)
	}))
	defer srv.Close()

	s := New(Config{
		Engine: engine.Config{Host: srv.URL},
		Handler: func(event any) error {
			rec, ok := event.(model.TapRecord)
			if !ok {
				return nil
			}
			if rec.RKey == "bad" {
				return fmt.Errorf("rejected")
			}
			return nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	select {
	case <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to observe ack")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1}, acks)
}

func TestStream_DisableAcksSuppressesAll(t *testing.T) {
	gotFrame := make(chan struct{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		ev := map[string]any{"id": int64(1), "type": "record", "record": map[string]any{
			"did": "did:plc:x", "collection": "c", "rkey": "ok", "action": "create",
		}}
		data, _ := json.Marshal(ev)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		_, _, err = conn.ReadMessage()
		if err != nil {
			gotFrame <- struct{}{}
		}
	}))
	defer srv.Close()

	s := New(Config{
		Engine:      engine.Config{Host: srv.URL},
		DisableAcks: true,
		Handler:     func(event any) error { return nil },
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	select {
	case <-gotFrame:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read deadline with no ack frame")
	}
}

func TestAdminClient_SuccessAndError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stats/repo-count":
			assert.Equal(t, "Basic YWRtaW46c2VjcmV0", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"count":42}`))
		case "/repos/add":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []any{"did:plc:x"}, body["dids"])
			w.WriteHeader(http.StatusNoContent)
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("nope"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	password := "secret"
	admin := newAdminClient(srv.URL, &password)

	stats, err := admin.StatsRepoCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(42), stats["count"])

	require.NoError(t, admin.AddRepos(context.Background(), []string{"did:plc:x"}))

	_, err = admin.getJSON(context.Background(), "/boom")
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
}

func TestAdminClient_TransportError(t *testing.T) {
	admin := newAdminClient("http://127.0.0.1:1", nil)
	_, err := admin.getJSON(context.Background(), "/health")
	require.Error(t, err)
}
