package handlers

import (
	"context"
	"net/http"

	"github.com/code-100-precent/LingTalk/pkg/dialog/handler"
	"github.com/code-100-precent/LingTalk/pkg/dialog/sessions"
	"github.com/code-100-precent/LingTalk/pkg/events"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionController is the part of *handler.AudioSession the API drives.
type SessionController interface {
	Start(ctx context.Context) error
	Stop()
	FinishUtterance() error
	UpdateSettings(ctx context.Context, s settings.Settings) error
	Settings() settings.Settings
	History() []sessions.Message
	Snapshot() handler.Snapshot
}

type Handlers struct {
	db       *gorm.DB
	session  SessionController
	bus      *events.EventBus
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandlers(db *gorm.DB, session SessionController, bus *events.EventBus, gatherer prometheus.Gatherer, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handlers{
		db:       db,
		session:  session,
		bus:      bus,
		gatherer: gatherer,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register mounts the control API under apiPrefix and the prometheus
// handler at monitorPrefix. An empty monitorPrefix disables metrics.
func (h *Handlers) Register(engine *gin.Engine, apiPrefix, monitorPrefix string, middlewares ...gin.HandlerFunc) {
	r := engine.Group(apiPrefix)
	r.Use(middlewares...)

	r.GET("/health", h.HealthCheck)

	r.GET("/settings", h.GetSettings)
	r.PUT("/settings", h.UpdateSettings)

	session := r.Group("/session")
	{
		session.POST("/start", h.StartSession)
		session.POST("/stop", h.StopSession)
		session.POST("/finish", h.FinishUtterance)
		session.GET("/status", h.SessionStatus)
		session.GET("/events", h.SessionEvents)
	}

	r.GET("/history", h.GetHistory)

	if monitorPrefix != "" {
		engine.GET(monitorPrefix, gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}
