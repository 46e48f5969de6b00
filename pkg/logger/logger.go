package logger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

var (
	Lg = zap.NewNop()
)

// Init builds the process logger. An empty Filename logs to stdout only.
func Init(cfg *LogConfig, mode string) (err error) {
	var l = new(zapcore.Level)
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if err = l.UnmarshalText([]byte(cfg.Level)); err != nil {
		return
	}

	var fileCore zapcore.Core
	if cfg.Filename != "" {
		writeSyncer := getLogWriter(cfg.Filename, cfg.MaxSize, cfg.MaxBackups, cfg.MaxAge, cfg.Daily)
		fileCore = zapcore.NewCore(getEncoder(), writeSyncer, l)
	} else {
		fileCore = zapcore.NewCore(getEncoder(), zapcore.Lock(os.Stdout), l)
	}

	var core zapcore.Core
	if mode == "dev" || mode == "development" {
		consoleEncoder := zapcore.NewConsoleEncoder(getConsoleEncoderConfig())

		highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel && lvl >= *l
		})
		lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl < zapcore.ErrorLevel && lvl >= *l
		})

		cores := []zapcore.Core{
			zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), lowPriority),
			zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), highPriority),
		}
		if cfg.Filename != "" {
			cores = append(cores, fileCore)
		}
		core = zapcore.NewTee(cores...)
	} else {
		core = fileCore
	}

	Lg = zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(Lg)

	Info("init logger success", zap.String("level", cfg.Level), zap.String("mode", mode))
	return
}

// Named returns a child of the process logger for one component.
func Named(name string) *zap.Logger {
	return Lg.Named(name)
}

func getConsoleEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("\x1b[90m" + t.Format("2006-01-02 15:04:05.000") + "\x1b[0m")
	}
	encoderConfig.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var levelColor = map[zapcore.Level]string{
			zapcore.DebugLevel:  "\x1b[35m",
			zapcore.InfoLevel:   "\x1b[36m",
			zapcore.WarnLevel:   "\x1b[33m",
			zapcore.ErrorLevel:  "\x1b[31m",
			zapcore.DPanicLevel: "\x1b[31m",
			zapcore.PanicLevel:  "\x1b[31m",
			zapcore.FatalLevel:  "\x1b[31m",
		}
		color, ok := levelColor[l]
		if !ok {
			color = "\x1b[0m"
		}
		enc.AppendString(color + "[" + l.CapitalString() + "]\x1b[0m")
	}
	encoderConfig.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("\x1b[90m" + caller.TrimmedPath() + "\x1b[0m")
	}
	return encoderConfig
}

func getEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func getLogWriter(filename string, maxSize, maxBackup, maxAge int, daily bool) zapcore.WriteSyncer {
	if daily {
		filename = GetDailyLogFilename(filename)
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSize,
		MaxBackups: maxBackup,
		MaxAge:     maxAge,
		LocalTime:  true,
	}
	return zapcore.AddSync(lumberJackLogger)
}

func Info(msg string, fields ...zap.Field) {
	Lg.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Lg.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Lg.Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Lg.Debug(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Lg.Fatal(msg, fields...)
}

// Sync flushes buffered entries.
func Sync() {
	_ = Lg.Sync()
}

// GetDailyLogFilename inserts today's date before the extension.
func GetDailyLogFilename(baseFilename string) string {
	ext := filepath.Ext(baseFilename)
	base := baseFilename[:len(baseFilename)-len(ext)]
	dateStr := time.Now().Format("2006-01-02")
	return base + "-" + dateStr + ext
}
