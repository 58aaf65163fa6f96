package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var log = zap.NewNop()

// Initialize replaces the process logger. Until it is called every package
// logs to a no-op logger, which keeps tests quiet.
func Initialize(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	encoder := zapcore.EncoderConfig{
		MessageKey:    "message",
		LevelKey:      "level",
		TimeKey:       "time",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	format := strings.ToLower(cfg.Format)
	switch format {
	case "", FormatJSON:
		format = FormatJSON
	case FormatConsole:
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	built, err := zap.Config{
		Encoding:          format,
		Level:             zap.NewAtomicLevelAt(level),
		DisableStacktrace: level > zapcore.DebugLevel,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		EncoderConfig:     encoder,
	}.Build()
	if err != nil {
		return err
	}
	log = built

	return nil
}

func Logger() *zap.Logger {
	return log
}

// Named tags every entry with the component that wrote it.
func Named(component string) *zap.Logger {
	return log.With(zap.String("component", component))
}

func Sync() error {
	return log.Sync()
}
