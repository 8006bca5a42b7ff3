// Package logging builds the zap logger used by farmctl.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-farmform/internal/config"
)

// New builds a logger from cfg. Development loggers write readable console
// output; production loggers write JSON to stderr.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Sampling = nil
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger.Named("farmctl"), nil
}

// ParseLevel maps a config level onto zap. Empty means warn.
func ParseLevel(raw string) (zapcore.Level, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return zapcore.WarnLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", raw)
	}
	return level, nil
}
