package sessions

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// StatusCoder is implemented by provider errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

var rateLimitKeywords = []string{
	"rate limit",
	"too many requests",
	"quota exceeded",
	"quota exhausted",
	"insufficient quota",
	"insufficient_quota",
	"allowance has been exhausted",
	"daily limit",
	"exceeded your current quota",
}

var transientKeywords = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"temporary",
	"service unavailable",
	"bad gateway",
	"internal server error",
	"eof",
}

// ErrHandler classifies provider errors into the session taxonomy.
type ErrHandler struct {
	logger *zap.Logger
}

func NewErrHandler(logger *zap.Logger) *ErrHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrHandler{logger: logger}
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

func containsAny(msg string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

// IsRateLimit checks for HTTP 429 or quota wording.
func (h *ErrHandler) IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimit(err) {
		return true
	}
	if statusOf(err) == http.StatusTooManyRequests {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), rateLimitKeywords)
}

// IsTransient checks for timeouts, dropped connections and 5xx gateways.
func (h *ErrHandler) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	switch statusOf(err) {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return containsAny(strings.ToLower(err.Error()), transientKeywords)
}

// Classify maps err raised while performing kind onto a session error.
func (h *ErrHandler) Classify(err error, kind Kind) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case h.IsRateLimit(err):
		return NewRateLimitError(kind.Service(), "quota or rate limit reached", err)
	case h.IsTransient(err):
		return NewTransientError(kind, string(kind)+" temporarily failed", err)
	default:
		return NewRecoverableError(kind, string(kind)+" failed", err)
	}
}

// HandleError classifies and logs err.
func (h *ErrHandler) HandleError(err error, kind Kind) *Error {
	classified := h.Classify(err, kind)
	if classified == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("service", classified.Service),
		zap.String("kind", string(classified.Kind)),
		zap.String("type", classified.Type.String()),
		zap.Error(err),
	}
	switch classified.Type {
	case ErrorTypeFatal:
		h.logger.Error("fatal error", fields...)
	case ErrorTypeRecoverable:
		h.logger.Warn("recoverable error", fields...)
	case ErrorTypeTransient:
		h.logger.Debug("transient error", fields...)
	}
	return classified
}
