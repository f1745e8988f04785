package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new zap logger based on the LOG_LEVEL environment variable.
// Valid levels: debug, info, warn, error.
// Default: info.
//
// LOG_FORMAT=console switches from JSON to the human-readable encoder, which
// suits interactive runs of the one-shot commands.
func NewLogger() (*zap.Logger, error) {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}

	var level zapcore.Level
	err := level.UnmarshalText([]byte(levelStr))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}

	var config zap.Config
	switch format := os.Getenv("LOG_FORMAT"); format {
	case "", "json":
		config = zap.NewProductionConfig()
		config.Encoding = "json"
	case "console":
		config = zap.NewDevelopmentConfig()
		config.Encoding = "console"
	default:
		return nil, fmt.Errorf("invalid log format %q: want json or console", format)
	}

	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}
