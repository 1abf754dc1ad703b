package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/voteledger/internal/modules/realtime/hub"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupServer(t *testing.T, opts Options) (*hub.Hub, *httptest.Server) {
	t.Helper()

	h := hub.New()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	r := gin.New()
	r.GET("/api/ws", NewRealtimeHandler(h, opts).Subscribe)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return h, srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?" + query
}

var defaultOpts = Options{MaxConnections: 10, UpgradeRate: 100, UpgradeBurst: 100}

func TestSubscribe_ReceivesBroadcasts(t *testing.T) {
	h, srv := setupServer(t, defaultOpts)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "topics=feed:activity"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Broadcast("feed:events", []byte(`{"type":"event.created"}`))
	h.Broadcast("feed:activity", []byte(`{"type":"vote.cast"}`))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"vote.cast"}`, string(msg))
}

func TestSubscribe_DisconnectUnregisters(t *testing.T) {
	h, srv := setupServer(t, defaultOpts)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "topics=feed:events"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribe_RejectsInvalidTopics(t *testing.T) {
	_, srv := setupServer(t, defaultOpts)

	resp, err := http.Get(srv.URL + "/api/ws?topics=user:1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubscribe_ConnectionCap(t *testing.T) {
	h, srv := setupServer(t, Options{MaxConnections: 1, UpgradeRate: 100, UpgradeBurst: 100})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "topics=feed:events"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "topics=feed:events"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSubscribe_UpgradeRateLimit(t *testing.T) {
	_, srv := setupServer(t, Options{MaxConnections: 10, UpgradeRate: 0.001, UpgradeBurst: 1})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "topics=feed:events"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "topics=feed:events"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
