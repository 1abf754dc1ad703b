package handler

import (
	"log/slog"
	"net/http"
	"time"

	"anoa.com/voteledger/internal/metrics"
	"anoa.com/voteledger/internal/modules/realtime/hub"
	realtime "anoa.com/voteledger/internal/modules/realtime/service"
	"anoa.com/voteledger/pkg/apperror"
	"anoa.com/voteledger/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

type Options struct {
	MaxConnections int
	UpgradeRate    float64
	UpgradeBurst   int
	AllowedOrigins []string
}

type RealtimeHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
	maxConns int
}

func NewRealtimeHandler(h *hub.Hub, opts Options) *RealtimeHandler {
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return &RealtimeHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		limiter:  rate.NewLimiter(rate.Limit(opts.UpgradeRate), opts.UpgradeBurst),
		maxConns: opts.MaxConnections,
	}
}

// Subscribe upgrades to a websocket that receives change notifications for the
// requested topics: GET /api/ws?topics=feed:activity,vote_event:<id>
func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	topics, err := realtime.ParseTopics(c.Query("topics"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if !h.limiter.Allow() {
		metrics.WebSocketRejected.WithLabelValues("rate").Inc()
		response.ResponseError(c, apperror.ErrRateLimitExceeded)
		return
	}
	if h.hub.Count() >= h.maxConns {
		metrics.WebSocketRejected.WithLabelValues("capacity").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many connections", "outcome": "unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket", "error", err)
		return
	}

	client := hub.NewClient(topics, sendBuffer)
	if err := h.hub.Register(client); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go writePump(conn, client)
	readPump(conn)
	h.hub.Unregister(client)
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}

// writePump is the only writer on conn. It exits when the hub closes the client.
func writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
