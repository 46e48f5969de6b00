package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/cache"
	"github.com/code-100-precent/LingTalk/pkg/logger"
	"github.com/code-100-precent/LingTalk/pkg/utils"
)

// Config main configuration structure
type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Database DatabaseConfig   `mapstructure:"database"`
	Log      logger.LogConfig `mapstructure:"log"`
	Cache    cache.Config     `mapstructure:"cache"`
	Services ServicesConfig   `mapstructure:"services"`
	Audio    AudioConfig      `mapstructure:"audio"`
	Session  SessionConfig    `mapstructure:"session"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Name          string `env:"SERVER_NAME"`
	Addr          string `env:"ADDR"`
	Mode          string `env:"MODE"`
	APIPrefix     string `env:"API_PREFIX"`
	MonitorPrefix string `env:"MONITOR_PREFIX"`
	RateLimit     string `env:"RATE_LIMIT"` // ulule format, e.g. "120-M"
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER"`
	DSN    string `env:"DSN"`
}

// ServicesConfig remote speech and dialogue services
type ServicesConfig struct {
	Transcriber TranscriberConfig `mapstructure:"transcriber"`
	LLM         LLMConfig         `mapstructure:"llm"`
	TTS         TTSConfig         `mapstructure:"tts"`
	Timeout     time.Duration     `env:"SERVICE_TIMEOUT"`
}

// TranscriberConfig speech-to-text configuration
type TranscriberConfig struct {
	Provider string `env:"TRANSCRIBER_PROVIDER"`
	APIKey   string `env:"TRANSCRIBER_API_KEY"`
	BaseURL  string `env:"TRANSCRIBER_BASE_URL"`
	Model    string `env:"TRANSCRIBER_MODEL"`
	Language string `env:"TRANSCRIBER_LANGUAGE"`
}

// LLMConfig dialogue service configuration
type LLMConfig struct {
	Provider     string  `env:"LLM_PROVIDER"`
	APIKey       string  `env:"LLM_API_KEY"`
	BaseURL      string  `env:"LLM_BASE_URL"`
	Model        string  `env:"LLM_MODEL"`
	SystemPrompt string  `env:"SYSTEM_PROMPT"`
	MaxTokens    int     `env:"LLM_MAX_TOKENS"`
	Temperature  float64 `env:"LLM_TEMPERATURE"`
}

// TTSConfig speech synthesis configuration
type TTSConfig struct {
	Provider   string        `env:"TTS_PROVIDER"`
	APIKey     string        `env:"TTS_API_KEY"`
	BaseURL    string        `env:"TTS_BASE_URL"`
	Model      string        `env:"TTS_MODEL"`
	Voice      string        `env:"TTS_VOICE"`
	SampleRate int           `env:"TTS_SAMPLE_RATE"`
	CacheTTL   time.Duration `env:"TTS_CACHE_TTL"`
}

// AudioConfig capture and sampling configuration
type AudioConfig struct {
	SampleRate     int    `env:"AUDIO_SAMPLE_RATE"`
	WindowSize     int    `env:"AUDIO_WINDOW_SIZE"`
	TickHz         int    `env:"AUDIO_TICK_HZ"`
	CaptureDevice  string `env:"AUDIO_CAPTURE_DEVICE"`
	PlaybackDevice string `env:"AUDIO_PLAYBACK_DEVICE"`
}

// SessionConfig session behaviour
type SessionConfig struct {
	AutoStart        bool          `env:"SESSION_AUTO_START"`
	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderWhisper   = "whisper"
	ProviderOllama    = "ollama"
	ProviderFishAudio = "fishaudio"
)

var GlobalConfig *Config

func Load() error {
	// A missing .env file is not an error; defaults and the process environment apply.
	env := os.Getenv("APP_ENV")
	if err := utils.LoadEnv(env); err != nil {
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	openAIKey := utils.GetEnv("OPENAI_API_KEY")

	GlobalConfig = &Config{
		Server: ServerConfig{
			Name:          getStringOrDefault("SERVER_NAME", "LingTalk"),
			Addr:          getStringOrDefault("ADDR", ":7080"),
			Mode:          getStringOrDefault("MODE", "development"),
			APIPrefix:     getStringOrDefault("API_PREFIX", "/api"),
			MonitorPrefix: getStringOrDefault("MONITOR_PREFIX", "/metrics"),
			RateLimit:     getStringOrDefault("RATE_LIMIT", "600-M"),
		},
		Database: DatabaseConfig{
			Driver: getStringOrDefault("DB_DRIVER", "sqlite"),
			DSN:    getStringOrDefault("DSN", "./lingtalk.db"),
		},
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		Cache: loadCacheConfig(),
		Services: ServicesConfig{
			Transcriber: TranscriberConfig{
				Provider: getStringOrDefault("TRANSCRIBER_PROVIDER", ProviderOpenAI),
				APIKey:   getStringOrDefault("TRANSCRIBER_API_KEY", openAIKey),
				BaseURL:  getStringOrDefault("TRANSCRIBER_BASE_URL", "https://api.openai.com/v1"),
				Model:    getStringOrDefault("TRANSCRIBER_MODEL", "whisper-1"),
				Language: getStringOrDefault("TRANSCRIBER_LANGUAGE", ""),
			},
			LLM: LLMConfig{
				Provider:     getStringOrDefault("LLM_PROVIDER", ProviderOpenAI),
				APIKey:       getStringOrDefault("LLM_API_KEY", openAIKey),
				BaseURL:      getStringOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
				Model:        getStringOrDefault("LLM_MODEL", "gpt-4o-mini"),
				SystemPrompt: getStringOrDefault("SYSTEM_PROMPT", "You are a friendly conversation partner. Keep replies short and spoken."),
				MaxTokens:    getIntOrDefault("LLM_MAX_TOKENS", 256),
				Temperature:  getFloatOrDefault("LLM_TEMPERATURE", 0.7),
			},
			TTS: TTSConfig{
				Provider:   getStringOrDefault("TTS_PROVIDER", ProviderOpenAI),
				APIKey:     getStringOrDefault("TTS_API_KEY", openAIKey),
				BaseURL:    getStringOrDefault("TTS_BASE_URL", "https://api.openai.com/v1"),
				Model:      getStringOrDefault("TTS_MODEL", "tts-1"),
				Voice:      getStringOrDefault("TTS_VOICE", "alloy"),
				SampleRate: getIntOrDefault("TTS_SAMPLE_RATE", 24000),
				CacheTTL:   parseDuration(utils.GetEnv("TTS_CACHE_TTL"), 30*time.Minute),
			},
			Timeout: parseDuration(utils.GetEnv("SERVICE_TIMEOUT"), 30*time.Second),
		},
		Audio: AudioConfig{
			SampleRate:     getIntOrDefault("AUDIO_SAMPLE_RATE", 16000),
			WindowSize:     getIntOrDefault("AUDIO_WINDOW_SIZE", 1024),
			TickHz:         getIntOrDefault("AUDIO_TICK_HZ", 50),
			CaptureDevice:  getStringOrDefault("AUDIO_CAPTURE_DEVICE", ""),
			PlaybackDevice: getStringOrDefault("AUDIO_PLAYBACK_DEVICE", ""),
		},
		Session: SessionConfig{
			AutoStart:        getBoolOrDefault("SESSION_AUTO_START", false),
			SettingsCacheTTL: parseDuration(utils.GetEnv("SETTINGS_CACHE_TTL"), 10*time.Minute),
		},
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database DSN is required")
	}
	if c.Server.Addr == "" {
		return errors.New("server address is required")
	}
	if c.Audio.TickHz < 20 || c.Audio.TickHz > 100 {
		return fmt.Errorf("audio tick rate must be between 20 and 100 Hz, got %d", c.Audio.TickHz)
	}
	if c.Audio.WindowSize <= 0 {
		return errors.New("audio window size must be positive")
	}
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio sample rate must be positive")
	}

	switch strings.ToLower(c.Services.Transcriber.Provider) {
	case ProviderOpenAI, ProviderWhisper:
	default:
		return fmt.Errorf("unsupported transcriber provider: %s", c.Services.Transcriber.Provider)
	}
	switch strings.ToLower(c.Services.LLM.Provider) {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.Services.LLM.Provider)
	}
	switch strings.ToLower(c.Services.TTS.Provider) {
	case ProviderOpenAI, ProviderFishAudio:
	default:
		return fmt.Errorf("unsupported tts provider: %s", c.Services.TTS.Provider)
	}
	return nil
}

// TickInterval is the sampling period derived from Audio.TickHz.
func (c *Config) TickInterval() time.Duration {
	if c.Audio.TickHz <= 0 {
		return 20 * time.Millisecond
	}
	return time.Second / time.Duration(c.Audio.TickHz)
}

// getStringOrDefault gets environment variable value, returns default if empty
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault gets boolean environment variable value, returns default if empty
func getBoolOrDefault(key string, defaultValue bool) bool {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault gets integer environment variable value, returns default if empty
func getIntOrDefault(key string, defaultValue int) int {
	value := utils.GetIntEnv(key)
	if value == 0 {
		return defaultValue
	}
	return int(value)
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if f, ok := utils.GetFloatEnv(key); ok {
		return f
	}
	return defaultValue
}

// parseDuration parses duration string with default fallback
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// loadCacheConfig loads cache configuration with all default values
func loadCacheConfig() cache.Config {
	return cache.Config{
		Type: getStringOrDefault("CACHE_TYPE", cache.KindLocal),
		Redis: cache.RedisConfig{
			Addr:         getStringOrDefault("REDIS_ADDR", "localhost:6379"),
			Password:     utils.GetEnv("REDIS_PASSWORD"),
			DB:           int(utils.GetIntEnv("REDIS_DB")),
			PoolSize:     getIntOrDefault("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntOrDefault("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  parseDuration(utils.GetEnv("REDIS_DIAL_TIMEOUT"), 5*time.Second),
			ReadTimeout:  parseDuration(utils.GetEnv("REDIS_READ_TIMEOUT"), 3*time.Second),
			WriteTimeout: parseDuration(utils.GetEnv("REDIS_WRITE_TIMEOUT"), 3*time.Second),
			Prefix:       getStringOrDefault("REDIS_PREFIX", "lingtalk:"),
		},
		Local: cache.LocalConfig{
			MaxSize:           getIntOrDefault("LOCAL_CACHE_MAX_SIZE", 512),
			DefaultExpiration: parseDuration(utils.GetEnv("LOCAL_CACHE_DEFAULT_EXPIRATION"), 10*time.Minute),
			CleanupInterval:   parseDuration(utils.GetEnv("LOCAL_CACHE_CLEANUP_INTERVAL"), 10*time.Minute),
		},
	}
}
