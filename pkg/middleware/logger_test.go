package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedEngine() (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(LoggerMiddleware(zap.New(core)))
	return r, logs
}

func TestLoggerMiddleware_LogsSessionStart(t *testing.T) {
	r, logs := newLoggedEngine()
	r.POST("/api/session/start", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 200})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/session/start?source=test", nil)
	req.Header.Set("User-Agent", "lingtalk-test")
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/session/start", fields["path"])
	assert.Equal(t, "source=test", fields["query"])
	assert.Equal(t, "198.51.100.7", fields["ip"])
	assert.Equal(t, "lingtalk-test", fields["user-agent"])
	assert.Contains(t, fields, "latency")
	assert.NotContains(t, fields, "errors")
}

func TestLoggerMiddleware_SkipsGet(t *testing.T) {
	r, logs := newLoggedEngine()
	r.GET("/api/session/status", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/session/events", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for _, path := range []string{"/api/session/status", "/api/session/events"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Zero(t, logs.Len())
}

func TestLoggerMiddleware_PrivateErrors(t *testing.T) {
	r, logs := newLoggedEngine()
	r.PUT("/api/settings", func(c *gin.Context) {
		_ = c.Error(errors.New("settings store unavailable"))
		_ = c.Error(errors.New("shown to client")).SetType(gin.ErrorTypePublic)
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/settings", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusInternalServerError), fields["status"])
	require.Contains(t, fields, "errors")
	assert.Contains(t, fields["errors"], "settings store unavailable")
	assert.NotContains(t, fields["errors"], "shown to client")
}
