package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mvlbulankin/yamdb-final/internal/broker"
	"github.com/mvlbulankin/yamdb-final/pkg/logger"
	"go.uber.org/zap"
)

const (
	maxSessionLifetime = 15 * time.Minute
	writeWait          = 10 * time.Second // Time allowed to write a message to the peer
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
)

// ActivityHandler streams review and comment events over a websocket.
// Each connection owns its own Redis subscription for its lifetime.
type ActivityHandler struct {
	events   broker.Subscriber
	upgrader websocket.Upgrader
}

func NewActivityHandler(events broker.Subscriber, allowedOrigins []string) *ActivityHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &ActivityHandler{
		events: events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// GET /api/v1/ws/activity
func (h *ActivityHandler) Stream(c *gin.Context) {
	if h.events == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "activity feed is not configured",
		})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.events.Subscribe(ctx)
	if err != nil {
		logger.Log.Error("Activity subscription failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "activity feed is temporarily unavailable",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connectedAt := time.Now()
	logger.Log.Info("Activity client connected", zap.String("ip", c.ClientIP()))

	go readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	sessionTimer := time.NewTimer(maxSessionLifetime)
	defer sessionTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Activity client disconnected",
				zap.Duration("session", time.Since(connectedAt).Round(time.Second)),
			)
			return

		case event, ok := <-events:
			if !ok {
				closeGracefully(conn, websocket.CloseGoingAway, "feed closed")
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Log.Debug("Activity write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-sessionTimer.C:
			closeGracefully(conn, websocket.CloseNormalClosure, "session expired")
			return
		}
	}
}

// readPump drains client frames so pongs and close frames are processed,
// and cancels the session when the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("Activity client read error", zap.Error(err))
			}
			return
		}
	}
}

func closeGracefully(conn *websocket.Conn, code int, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
