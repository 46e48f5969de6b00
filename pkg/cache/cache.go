package cache

import (
	"context"
	"time"
)

// NoExpiration keeps an entry until it is deleted or evicted.
const NoExpiration time.Duration = -1

// Cache defines the cache interface
type Cache interface {
	// Get retrieves a cached value
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache. A zero expiration uses the backend default.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Delete removes a cached value
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists
	Exists(ctx context.Context, key string) bool

	// Clear removes all cached values owned by this cache
	Clear(ctx context.Context) error

	// Close releases the backend
	Close() error
}

// Config defines cache configuration
type Config struct {
	// Cache type: "local", "gocache" or "redis"
	Type string `json:"type" yaml:"type" env:"CACHE_TYPE" default:"local"`

	Redis RedisConfig `json:"redis" yaml:"redis"`

	Local LocalConfig `json:"local" yaml:"local"`
}

// RedisConfig defines Redis configuration
type RedisConfig struct {
	Addr         string        `json:"addr" yaml:"addr" env:"REDIS_ADDR" default:"localhost:6379"`
	Password     string        `json:"password" yaml:"password" env:"REDIS_PASSWORD"`
	DB           int           `json:"db" yaml:"db" env:"REDIS_DB" default:"0"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size" env:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" env:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" env:"REDIS_WRITE_TIMEOUT" default:"3s"`

	// Prefix namespaces every key written by this process.
	Prefix string `json:"prefix" yaml:"prefix" env:"REDIS_PREFIX" default:"lingtalk:"`
}

// LocalConfig defines in-process cache configuration
type LocalConfig struct {
	// Maximum number of entries (local LRU only)
	MaxSize int `json:"max_size" yaml:"max_size" env:"LOCAL_CACHE_MAX_SIZE" default:"512"`

	DefaultExpiration time.Duration `json:"default_expiration" yaml:"default_expiration" env:"LOCAL_CACHE_DEFAULT_EXPIRATION" default:"10m"`

	// Cleanup interval (gocache only)
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" env:"LOCAL_CACHE_CLEANUP_INTERVAL" default:"10m"`
}
