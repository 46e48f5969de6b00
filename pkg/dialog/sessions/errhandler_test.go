package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

func TestErrHandler_Classify(t *testing.T) {
	h := NewErrHandler(nil)

	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantType ErrorType
	}{
		{"openai 429", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}, KindRateLimit, ErrorTypeFatal},
		{"request 429", fmt.Errorf("wrapped: %w", &openai.RequestError{HTTPStatusCode: 429, Err: errors.New("x")}), KindRateLimit, ErrorTypeFatal},
		{"status coder 429", statusErr(429), KindRateLimit, ErrorTypeFatal},
		{"quota keyword", errors.New("You exceeded your current quota, please check your plan"), KindRateLimit, ErrorTypeFatal},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindDialogue, ErrorTypeTransient},
		{"503", statusErr(503), KindDialogue, ErrorTypeTransient},
		{"other", errors.New("invalid voice"), KindDialogue, ErrorTypeRecoverable},
		{"400", &openai.APIError{HTTPStatusCode: 400, Message: "bad request"}, KindDialogue, ErrorTypeRecoverable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Classify(tt.err, KindDialogue)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantType, got.Type)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestErrHandler_ClassifyKeepsSessionErrors(t *testing.T) {
	h := NewErrHandler(nil)
	orig := NewAcquisitionError(errors.New("no device"))
	assert.Same(t, orig, h.Classify(fmt.Errorf("start: %w", orig), KindDialogue))
	assert.Nil(t, h.Classify(nil, KindDialogue))
}

func TestErrHandler_HandleErrorLogsBySeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewErrHandler(zap.New(core))

	h.HandleError(statusErr(429), KindSynthesis)
	h.HandleError(errors.New("boom"), KindSynthesis)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.Equal(t, "synthesizer", entries[1].ContextMap()["service"])
	}
}

func TestError_Notice(t *testing.T) {
	rl := NewRateLimitError("dialogue", "quota", nil)
	assert.Contains(t, rl.Notice(), "limit")
	assert.True(t, IsRateLimit(fmt.Errorf("x: %w", rl)))

	e := NewRecoverableError(KindTranscription, "failed", errors.New("io"))
	assert.Contains(t, e.Notice(), "transcriber")
	assert.Equal(t, "[transcriber] failed: io", e.Error())
	assert.False(t, IsRateLimit(e))
	assert.True(t, IsAcquisition(NewAcquisitionError(nil)))
}
