package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"healthbot/internal/config"
)

var defaultLogger *slog.Logger

// Init builds the process-wide logger from config and installs it as the
// slog default. Safe to call once at startup.
func Init(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.Debug {
		opts.AddSource = true
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	defaultLogger = slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", "healthbot"),
	}))
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// Get returns the configured logger, initialising a plain one if Init was
// never called (tests, tools).
func Get() *slog.Logger {
	if defaultLogger == nil {
		defaultLogger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return defaultLogger
}

// Module returns a child logger tagged with the originating module.
func Module(name string) *slog.Logger {
	return Get().With(slog.String("module", name))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
