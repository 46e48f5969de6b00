package handlers

import (
	"time"

	"github.com/code-100-precent/LingTalk/pkg/events"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	eventBuffer  = 64
	writeTimeout = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// SessionEvents streams every bus event to the client as a JSON text frame.
// Events are dropped for a client that cannot keep up.
func (h *Handlers) SessionEvents(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	queue := make(chan events.Event, eventBuffer)
	unsubscribe := h.bus.Subscribe(events.Wildcard, func(ev events.Event) error {
		select {
		case queue <- ev:
		default:
			h.logger.Debug("websocket client slow, event dropped", zap.String("eventType", ev.Type))
		}
		return nil
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info("websocket client connected", zap.String("remote", c.Request.RemoteAddr))

	if err := h.writeEvent(conn, events.Event{
		Type:      events.TypeSessionState,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"snapshot": h.session.Snapshot()},
		Source:    "api",
	}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			h.logger.Info("websocket client disconnected", zap.String("remote", c.Request.RemoteAddr))
			return
		case <-c.Request.Context().Done():
			return
		case ev := <-queue:
			if err := h.writeEvent(conn, ev); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *Handlers) writeEvent(conn *websocket.Conn, ev events.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}
