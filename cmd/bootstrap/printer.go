package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"github.com/code-100-precent/LingTalk/pkg/config"
	"github.com/code-100-precent/LingTalk/pkg/logger"
	"go.uber.org/zap"
)

// LogConfigInfo Print global configuration information. Secrets are masked.
func LogConfigInfo() {
	cfg := config.GlobalConfig
	logger.Info("system config load finished")
	logger.Info("server config",
		zap.String("server_name", cfg.Server.Name),
		zap.String("addr", cfg.Server.Addr),
		zap.String("mode", cfg.Server.Mode),
		zap.String("api_prefix", cfg.Server.APIPrefix),
		zap.String("monitor_prefix", cfg.Server.MonitorPrefix),
		zap.String("rate_limit", cfg.Server.RateLimit),
	)

	logger.Info("database config",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("dsn", maskSecret(cfg.Database.DSN)),
		zap.String("cache_type", cfg.Cache.Type),
	)

	logger.Info("log config",
		zap.String("log_level", cfg.Log.Level),
		zap.String("log_filename", cfg.Log.Filename),
		zap.Int("log_max_size", cfg.Log.MaxSize),
		zap.Int("log_max_age", cfg.Log.MaxAge),
		zap.Int("log_max_backups", cfg.Log.MaxBackups),
	)

	logger.Info("services config",
		zap.String("transcriber_provider", cfg.Services.Transcriber.Provider),
		zap.String("transcriber_model", cfg.Services.Transcriber.Model),
		zap.String("transcriber_api_key", maskSecret(cfg.Services.Transcriber.APIKey)),
		zap.String("llm_provider", cfg.Services.LLM.Provider),
		zap.String("llm_model", cfg.Services.LLM.Model),
		zap.String("llm_api_key", maskSecret(cfg.Services.LLM.APIKey)),
		zap.String("tts_provider", cfg.Services.TTS.Provider),
		zap.String("tts_voice", cfg.Services.TTS.Voice),
		zap.String("tts_api_key", maskSecret(cfg.Services.TTS.APIKey)),
		zap.Duration("service_timeout", cfg.Services.Timeout),
	)

	logger.Info("audio config",
		zap.Int("sample_rate", cfg.Audio.SampleRate),
		zap.Int("window_size", cfg.Audio.WindowSize),
		zap.Int("tick_hz", cfg.Audio.TickHz),
		zap.String("capture_device", cfg.Audio.CaptureDevice),
		zap.String("playback_device", cfg.Audio.PlaybackDevice),
		zap.Bool("auto_start", cfg.Session.AutoStart),
	)
}

// maskSecret keeps the first four characters.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 8)
}

// PrintBannerFromFile Read file and print
func PrintBannerFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")

	colors := []string{
		"\x1b[38;5;39m",
		"\x1b[38;5;45m",
		"\x1b[38;5;51m",
		"\x1b[38;5;87m",
		"\x1b[38;5;123m",
		"\x1b[38;5;159m",
	}

	for i, line := range lines {
		color := colors[i%len(colors)]
		fmt.Println(color + line + "\x1b[0m")
	}
	return nil
}
