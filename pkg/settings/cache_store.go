package settings

import (
	"context"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/cache"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const cacheKey = "settings:voice"

// CacheStore fronts another Store with a cache. With a nil next store the
// cache itself is the persistence layer (useful with redis).
type CacheStore struct {
	cache  cache.Cache
	next   Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewCacheStore(c cache.Cache, next Store, ttl time.Duration, logger *zap.Logger) *CacheStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if next == nil {
		ttl = cache.NoExpiration
	}
	return &CacheStore{cache: c, next: next, ttl: ttl, logger: logger}
}

func (c *CacheStore) Load(ctx context.Context) Settings {
	if v, ok := c.cache.Get(ctx, cacheKey); ok {
		raw, err := cast.ToStringE(v)
		if err == nil {
			if s, err := decode(raw); err == nil {
				return s
			}
		}
		c.logger.Warn("[Settings] cached value unreadable, dropping it", zap.Any("value", v))
		_ = c.cache.Delete(ctx, cacheKey)
	}

	if c.next == nil {
		return Defaults()
	}
	if next, ok := c.next.(checkedLoader); ok {
		s, stored := next.loadChecked(ctx)
		if stored {
			c.remember(ctx, s)
		}
		return s
	}
	s := c.next.Load(ctx)
	c.remember(ctx, s)
	return s
}

func (c *CacheStore) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if c.next != nil {
		if err := c.next.Save(ctx, s); err != nil {
			_ = c.cache.Delete(ctx, cacheKey)
			return err
		}
	}
	raw, err := encode(s)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, cacheKey, raw, c.ttl)
}

func (c *CacheStore) remember(ctx context.Context, s Settings) {
	raw, err := encode(s)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey, raw, c.ttl); err != nil {
		c.logger.Debug("[Settings] cache write failed", zap.Error(err))
	}
}
