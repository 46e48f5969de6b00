package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// localCache is a size-bounded LRU with per-entry expiration.
type localCache struct {
	config LocalConfig
	lru    *lru.Cache[string, cacheItem]
}

type cacheItem struct {
	value      interface{}
	expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewLocalCache creates a new local LRU cache instance
func NewLocalCache(config LocalConfig) (Cache, error) {
	if config.MaxSize <= 0 {
		config.MaxSize = 512
	}
	l, err := lru.New[string, cacheItem](config.MaxSize)
	if err != nil {
		return nil, err
	}
	return &localCache{config: config, lru: l}, nil
}

func (lc *localCache) Get(ctx context.Context, key string) (interface{}, bool) {
	item, ok := lc.lru.Get(key)
	if !ok {
		return nil, false
	}
	if item.expired(time.Now()) {
		lc.lru.Remove(key)
		return nil, false
	}
	return item.value, true
}

func (lc *localCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration == 0 {
		expiration = lc.config.DefaultExpiration
	}
	item := cacheItem{value: value}
	if expiration > 0 {
		item.expiration = time.Now().Add(expiration)
	}
	lc.lru.Add(key, item)
	return nil
}

func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

func (lc *localCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.Get(ctx, key)
	return ok
}

func (lc *localCache) Clear(ctx context.Context) error {
	lc.lru.Purge()
	return nil
}

func (lc *localCache) Close() error {
	lc.lru.Purge()
	return nil
}
