// Package logger builds the application's zap logger from configuration.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seenimoa/form13f/internal/config"
)

// New builds a logger writing to stderr, so stdout stays free for command
// output. An unknown level falls back to info.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoding := "console"
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	if cfg.Format == "json" {
		encoding = "json"
		encoderCfg = zap.NewProductionEncoderConfig()
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       false,
		Encoding:          encoding,
		DisableStacktrace: true,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	return zc.Build()
}

// WithLevel returns a copy of cfg with level replaced when override is set.
func WithLevel(cfg config.LoggingConfig, override string) config.LoggingConfig {
	if override != "" {
		cfg.Level = override
	}
	return cfg
}
