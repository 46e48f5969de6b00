package response

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    int         `json:"code"` // 200 on success
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  msg,
		"data": data,
	})
}

func Fail(c *gin.Context, msg string, data interface{}) {
	// Standardize error response format
	errorResponse := gin.H{
		"code": 500,
		"msg":  msg,
		"data": data,
	}

	// If data contains error information, extract it for consistent format
	if dataMap, ok := data.(gin.H); ok {
		if errorCode, exists := dataMap["error"]; exists {
			errorResponse["error"] = errorCode
		}
		if message, exists := dataMap["message"]; exists && msg == "" {
			errorResponse["msg"] = message
		}
	}

	c.JSON(http.StatusOK, errorResponse)
}

func Result(context *gin.Context, httpStatus int, code int, msg string, data gin.H) {
	context.JSON(httpStatus, gin.H{
		"code": code,
		"msg":  msg,
		"data": data,
	})
}

func AbortWithStatus(c *gin.Context, httpStatus int) {
	c.AbortWithStatus(httpStatus)
}

// AbortWithStatusJSON aborts with a friendly message and a stable error code
// derived from err.
func AbortWithStatusJSON(c *gin.Context, httpStatus int, err error) {
	errorResponse := gin.H{
		"code": httpStatus,
		"msg":  err.Error(),
		"data": nil,
	}

	errorMsg := err.Error()
	switch {
	case strings.Contains(errorMsg, "invalid settings"):
		errorResponse["msg"] = "Invalid voice settings: " + strings.TrimPrefix(errorMsg, "invalid settings: ")
		errorResponse["error"] = "INVALID_SETTINGS"
	case strings.Contains(errorMsg, "session already active"):
		errorResponse["msg"] = "A conversation is already running"
		errorResponse["error"] = "SESSION_ACTIVE"
	case strings.Contains(errorMsg, "session not active"):
		errorResponse["msg"] = "No conversation is running"
		errorResponse["error"] = "SESSION_INACTIVE"
	case strings.Contains(errorMsg, "failed to acquire audio input"):
		errorResponse["msg"] = "Microphone unavailable"
		errorResponse["error"] = "MICROPHONE_UNAVAILABLE"
	case strings.Contains(errorMsg, "rate limit"):
		errorResponse["msg"] = "Daily limit reached"
		errorResponse["error"] = "RATE_LIMITED"
	default:
		errorResponse["error"] = "UNKNOWN_ERROR"
	}

	c.AbortWithStatusJSON(httpStatus, errorResponse)
}
