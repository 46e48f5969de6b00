package handlers

import (
	"errors"
	"net/http"

	"github.com/code-100-precent/LingTalk/pkg/dialog/sessions"
	"github.com/code-100-precent/LingTalk/pkg/response"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetSettings returns the tunables the next session will start with.
func (h *Handlers) GetSettings(c *gin.Context) {
	response.Success(c, "voice settings", h.session.Settings())
}

// UpdateSettings validates, persists and applies new tunables.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req settings.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AbortWithStatusJSON(c, http.StatusBadRequest, err)
		return
	}

	if err := h.session.UpdateSettings(c.Request.Context(), req); err != nil {
		if errors.Is(err, settings.ErrInvalidSettings) {
			response.AbortWithStatusJSON(c, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("save voice settings failed", zap.Error(err))
		response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, "voice settings updated", req)
}

func (h *Handlers) StartSession(c *gin.Context) {
	err := h.session.Start(c.Request.Context())
	switch {
	case err == nil:
		response.Success(c, "conversation started", h.session.Snapshot())
	case errors.Is(err, sessions.ErrSessionActive):
		response.AbortWithStatusJSON(c, http.StatusConflict, err)
	case sessions.IsAcquisition(err):
		response.AbortWithStatusJSON(c, http.StatusServiceUnavailable, err)
	default:
		response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
	}
}

// StopSession is idempotent and always succeeds.
func (h *Handlers) StopSession(c *gin.Context) {
	h.session.Stop()
	response.Success(c, "conversation stopped", h.session.Snapshot())
}

func (h *Handlers) FinishUtterance(c *gin.Context) {
	if err := h.session.FinishUtterance(); err != nil {
		response.AbortWithStatusJSON(c, http.StatusConflict, err)
		return
	}
	response.Success(c, "recording finished", nil)
}

func (h *Handlers) SessionStatus(c *gin.Context) {
	response.Success(c, "conversation status", h.session.Snapshot())
}

func (h *Handlers) GetHistory(c *gin.Context) {
	response.Success(c, "conversation history", h.session.History())
}
