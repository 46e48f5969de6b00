package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/code-100-precent/LingTalk/cmd/bootstrap"
	handlers "github.com/code-100-precent/LingTalk/internal/handler"
	"github.com/code-100-precent/LingTalk/pkg/cache"
	"github.com/code-100-precent/LingTalk/pkg/config"
	"github.com/code-100-precent/LingTalk/pkg/devices"
	"github.com/code-100-precent/LingTalk/pkg/dialog/handler"
	"github.com/code-100-precent/LingTalk/pkg/dialog/stream"
	"github.com/code-100-precent/LingTalk/pkg/events"
	"github.com/code-100-precent/LingTalk/pkg/llm"
	"github.com/code-100-precent/LingTalk/pkg/logger"
	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/code-100-precent/LingTalk/pkg/middleware"
	"github.com/code-100-precent/LingTalk/pkg/recognizer"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"github.com/code-100-precent/LingTalk/pkg/synthesizer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	listDevices := flag.Bool("devices", false, "print capture and playback devices and exit")
	initSQL := flag.String("init-sql", "", "SQL script to run before migrations")
	banner := flag.String("banner", "banner.txt", "banner file printed at startup")
	flag.Parse()

	if *listDevices {
		if err := devices.PrintAllDevices(os.Stdout); err != nil {
			log.Fatalf("list devices: %v", err)
		}
		return
	}

	if err := run(*initSQL, *banner); err != nil {
		logger.Error("lingtalk exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(initSQL, banner string) error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := config.GlobalConfig
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(&cfg.Log, cfg.Server.Mode); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	_ = bootstrap.PrintBannerFromFile(banner)
	bootstrap.LogConfigInfo()

	db, err := bootstrap.SetupDatabase(os.Stdout, &bootstrap.Options{
		InitSQLPath: initSQL,
		AutoMigrate: true,
		SeedNonProd: true,
	})
	if err != nil {
		return err
	}

	appCache, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer appCache.Close()

	store := settings.NewCacheStore(appCache,
		settings.NewGormStore(db, logger.Named("settings")),
		cfg.Session.SettingsCacheTTL, logger.Named("settings"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := stream.NewMetrics(registry)
	bus := events.NewEventBus(logger.Named("events"))

	transcriber, agent, synth, err := buildServices(cfg, appCache)
	if err != nil {
		return err
	}

	speaker, err := devices.OpenSpeaker(cfg.Audio.PlaybackDevice, logger.Named("speaker"))
	if err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}
	defer speaker.Close()

	session := handler.NewAudioSession(handler.Options{
		OpenSource: func(ctx context.Context) (media.AudioSource, error) {
			mic, err := devices.OpenMicrophone(devices.MicrophoneConfig{
				SampleRate: cfg.Audio.SampleRate,
				WindowSize: cfg.Audio.WindowSize,
				DeviceName: cfg.Audio.CaptureDevice,
			}, logger.Named("microphone"))
			if err != nil {
				return nil, err
			}
			return mic, nil
		},
		Player:         speaker,
		Transcriber:    transcriber,
		Agent:          agent,
		Synthesizer:    synth,
		Voice:          cfg.Services.TTS.Voice,
		Store:          store,
		Bus:            bus,
		Metrics:        metrics,
		TickInterval:   cfg.TickInterval(),
		WindowSize:     cfg.Audio.WindowSize,
		ServiceTimeout: cfg.Services.Timeout,
		Logger:         logger.Named("session"),
	})
	defer session.Close()

	if cfg.Session.AutoStart {
		if err := session.Start(context.Background()); err != nil {
			logger.Warn("auto start failed", zap.Error(err))
		}
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	handlers.NewHandlers(db, session, bus, registry, logger.Named("api")).
		Register(engine, cfg.Server.APIPrefix, cfg.Server.MonitorPrefix)

	return serve(cfg.Server.Addr, engine)
}

func buildServices(cfg *config.Config, c cache.Cache) (recognizer.Transcriber, llm.DialogueAgent, synthesizer.SpeechSynthesizer, error) {
	svc := cfg.Services

	transcriber, err := recognizer.NewTranscriber(recognizer.Config{
		Vendor:   recognizer.Vendor(svc.Transcriber.Provider),
		APIKey:   svc.Transcriber.APIKey,
		BaseURL:  svc.Transcriber.BaseURL,
		Model:    svc.Transcriber.Model,
		Language: svc.Transcriber.Language,
		Timeout:  svc.Timeout,
	}, logger.Named("transcriber"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init transcriber: %w", err)
	}

	agent, err := llm.NewLLMProvider(svc.LLM.Provider, llm.Options{
		APIKey:       svc.LLM.APIKey,
		BaseURL:      svc.LLM.BaseURL,
		Model:        svc.LLM.Model,
		SystemPrompt: svc.LLM.SystemPrompt,
		MaxTokens:    svc.LLM.MaxTokens,
		Temperature:  float32(svc.LLM.Temperature),
		Timeout:      svc.Timeout,
	}, logger.Named("llm"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init dialogue agent: %w", err)
	}

	synth, err := synthesizer.NewSynthesizer(svc.TTS.Provider, synthesizer.Options{
		APIKey:     svc.TTS.APIKey,
		BaseURL:    svc.TTS.BaseURL,
		Model:      svc.TTS.Model,
		SampleRate: svc.TTS.SampleRate,
		Timeout:    svc.Timeout,
	}, logger.Named("synthesizer"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init synthesizer: %w", err)
	}
	if svc.TTS.CacheTTL > 0 {
		synth = synthesizer.NewCachedSynthesizer(synth, c, svc.TTS.CacheTTL, logger.Named("synthesizer"))
	}
	return transcriber, agent, synth, nil
}

func newEngine(cfg *config.Config) (*gin.Engine, error) {
	if cfg.Server.Mode != "development" && cfg.Server.Mode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.CorsMiddleware(), middleware.LoggerMiddleware(logger.Named("http")))

	if cfg.Server.RateLimit != "" {
		limit, err := middleware.RateLimitMiddleware(cfg.Server.RateLimit, logger.Named("http"))
		if err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		engine.Use(limit)
	}
	return engine, nil
}

func serve(addr string, engine *gin.Engine) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
