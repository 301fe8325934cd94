package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/game/world"
)

type indexes map[models.InstanceID]*world.Index

func (x indexes) Index(_ context.Context, instance models.InstanceID) (*world.Index, error) {
	if idx, ok := x[instance]; ok {
		return idx, nil
	}
	return nil, errs.ErrInstanceNotFound.With("instance", uint64(instance))
}

type received struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Instance *uint64         `json:"instance"`
	Payload  json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T, config Config) (*Server, bus.EventBus, *httptest.Server) {
	t.Helper()
	b := bus.New()
	known := indexes{
		1: {Instance: 1, PlayPhase: world.Play, Config: world.GameConfig{MaxPlayers: 4}},
		2: {Instance: 2},
	}
	srv := NewServer(config, b, known, log.NewNop())
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return srv, b, hs
}

func wsURL(hs *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws?" + query
}

func TestHTTP(t *testing.T) {
	_, _, hs := newTestServer(t, DefaultServerConfig())

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(hs.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Status string      `json:"status"`
			Rooms  int         `json:"rooms"`
			Bus    bus.Metrics `json:"bus"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "ok", body.Status)
		require.Zero(t, body.Rooms)
	})

	t.Run("instance index", func(t *testing.T) {
		resp, err := http.Get(hs.URL + "/instances/1")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "play", body["play_phase"])
	})

	t.Run("unknown and malformed instances", func(t *testing.T) {
		resp, err := http.Get(hs.URL + "/instances/7")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, err = http.Get(hs.URL + "/instances/abc")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestWebSocketFeed(t *testing.T) {
	srv, b, hs := newTestServer(t, DefaultServerConfig())
	publisher := events.NewBusPublisher(b, log.NewNop())

	t.Run("handshake rejections", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(hs, "instance=x"), nil)
		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		_, resp, err = websocket.DefaultDialer.Dial(wsURL(hs, "instance=9"), nil)
		require.Error(t, err)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("streams only the followed instance", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(hs, "instance=1"), nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, func() bool { return srv.GetStats().Rooms == 1 }, time.Second, time.Millisecond)

		publisher.Publish(context.Background(), events.TroopMovement{Instance: 2, From: 1, To: 2, Unit: 3})
		publisher.Publish(context.Background(), events.TileAttacked{Instance: 1, Attacker: 10, Defender: 11, DefendingTile: 12, Damage: 7})

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, events.TypeTileAttacked, msg.Type)
		require.NotEmpty(t, msg.ID)
		require.NotNil(t, msg.Instance)
		require.Equal(t, uint64(1), *msg.Instance)

		var payload events.TileAttacked
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		require.Equal(t, uint64(7), payload.Damage)
	})

	t.Run("room closes with its last client", func(t *testing.T) {
		require.Eventually(t, func() bool { return srv.GetStats().Rooms == 0 }, time.Second, time.Millisecond)
		require.Zero(t, b.GetMetrics().SubscribersActive)
	})
}

func TestAuth(t *testing.T) {
	config := DefaultServerConfig()
	config.Token = "secret"
	_, _, hs := newTestServer(t, config)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(hs, "instance=1"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(hs, "instance=1&token=wrong"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(hs, "instance=1&token=secret"), nil)
	require.NoError(t, err)
	conn.Close()

	req, err := http.NewRequest(http.MethodGet, hs.URL+"/instances/1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	r, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)

	health, err := http.Get(hs.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	require.Equal(t, http.StatusOK, health.StatusCode)
}

func TestLifecycle(t *testing.T) {
	config := DefaultServerConfig()
	config.ListenAddr = "127.0.0.1:0"
	srv := NewServer(config, bus.New(), indexes{1: {Instance: 1}}, log.NewNop())

	ctx := context.Background()
	require.ErrorIs(t, srv.Stop(ctx), ErrServerNotRunning)
	require.NoError(t, srv.Start(ctx))
	require.ErrorIs(t, srv.Start(ctx), ErrServerAlreadyRunning)
	require.NotEmpty(t, srv.Addr())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws?instance=1", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.GetStats().Clients == 1 }, time.Second, time.Millisecond)

	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)

	require.NoError(t, srv.Close())
	require.ErrorIs(t, srv.Start(ctx), ErrServerClosed)
}
