package synthesizer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/cache"
	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// CachedSynthesizer memoizes audio per (voice, text).
type CachedSynthesizer struct {
	next   SpeechSynthesizer
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

type cachedAudio struct {
	Format media.StreamFormat `json:"format"`
	Data   []byte             `json:"data"`
}

func NewCachedSynthesizer(next SpeechSynthesizer, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedSynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSynthesizer{next: next, cache: c, ttl: ttl, logger: logger}
}

// CacheKey is stable across processes so a shared redis cache can be reused.
func CacheKey(voice, text string) string {
	digest := sha1.Sum([]byte(voice + "\x00" + text))
	return "tts:" + hex.EncodeToString(digest[:])
}

func (s *CachedSynthesizer) Synthesize(ctx context.Context, text, voice string) (media.Audio, error) {
	key := CacheKey(voice, text)
	if v, ok := s.cache.Get(ctx, key); ok {
		if audio, err := decodeAudio(v); err == nil {
			s.logger.Debug("[TTS] cache hit", zap.String("key", key))
			return audio, nil
		}
		_ = s.cache.Delete(ctx, key)
	}

	audio, err := s.next.Synthesize(ctx, text, voice)
	if err != nil {
		return media.Audio{}, err
	}

	raw, err := json.Marshal(cachedAudio{Format: audio.Format, Data: audio.Data})
	if err == nil {
		if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
			s.logger.Warn("[TTS] cache write failed", zap.Error(err))
		}
	}
	return audio, nil
}

func decodeAudio(v interface{}) (media.Audio, error) {
	raw, err := cast.ToStringE(v)
	if err != nil {
		return media.Audio{}, err
	}
	var c cachedAudio
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return media.Audio{}, err
	}
	return media.Audio{Data: c.Data, Format: c.Format}, nil
}
