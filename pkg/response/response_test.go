package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/code-100-precent/LingTalk/pkg/dialog/sessions"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code  int            `json:"code"`
	Msg   string         `json:"msg"`
	Data  map[string]any `json:"data"`
	Error string         `json:"error"`
}

func serve(t *testing.T, method string, handlers ...gin.HandlerFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, "/", handlers...)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))

	var env envelope
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func TestSuccess_Settings(t *testing.T) {
	rr, env := serve(t, http.MethodGet, func(c *gin.Context) {
		Success(c, "settings", gin.H{"silenceTimeoutMs": 700})
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, "settings", env.Msg)
	assert.Equal(t, float64(700), env.Data["silenceTimeoutMs"])
}

func TestFail_LiftsErrorCode(t *testing.T) {
	rr, env := serve(t, http.MethodPost, func(c *gin.Context) {
		Fail(c, "", gin.H{"error": "SESSION_ACTIVE", "message": "already running"})
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 500, env.Code)
	assert.Equal(t, "already running", env.Msg)
	assert.Equal(t, "SESSION_ACTIVE", env.Error)
}

func TestResult_Status(t *testing.T) {
	rr, env := serve(t, http.MethodPost, func(c *gin.Context) {
		Result(c, http.StatusAccepted, 202, "stopping", gin.H{"state": "idle"})
	})

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 202, env.Code)
	assert.Equal(t, "idle", env.Data["state"])
}

func TestAbortWithStatus_SkipsLaterHandlers(t *testing.T) {
	ran := false
	rr, _ := serve(t, http.MethodGet,
		func(c *gin.Context) { AbortWithStatus(c, http.StatusServiceUnavailable) },
		func(c *gin.Context) { ran = true },
	)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Zero(t, rr.Body.Len())
	assert.False(t, ran)
}

func TestAbortWithStatusJSON_SessionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		code   string
		msg    string
	}{
		{"session active", http.StatusConflict, sessions.ErrSessionActive, "SESSION_ACTIVE", "A conversation is already running"},
		{"session inactive", http.StatusConflict, fmt.Errorf("finish: %w", sessions.ErrSessionInactive), "SESSION_INACTIVE", "No conversation is running"},
		{"microphone", http.StatusServiceUnavailable, sessions.NewAcquisitionError(errors.New("device busy")), "MICROPHONE_UNAVAILABLE", "Microphone unavailable"},
		{"rate limited", http.StatusTooManyRequests, sessions.NewRateLimitError("dialogue", "quota or rate limit reached", nil), "RATE_LIMITED", "Daily limit reached"},
		{"invalid settings", http.StatusBadRequest, settings.Settings{VADThreshold: 0.5, MinRecordingLengthMs: 1}.Validate(), "INVALID_SETTINGS", "Invalid voice settings: silenceTimeoutMs must be positive"},
		{"unknown", http.StatusInternalServerError, errors.New("disk full"), "UNKNOWN_ERROR", "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			ran := false
			rr, env := serve(t, http.MethodPost,
				func(c *gin.Context) { AbortWithStatusJSON(c, tt.status, tt.err) },
				func(c *gin.Context) { ran = true },
			)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.status, env.Code)
			assert.Equal(t, tt.code, env.Error)
			assert.Equal(t, tt.msg, env.Msg)
			assert.Nil(t, env.Data)
			assert.False(t, ran)
		})
	}
}
