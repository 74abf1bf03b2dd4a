// Package logging builds the zap logger used throughout the server.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a logger at the given level. Debug level switches to
// the human-readable development encoder; everything else logs JSON.
func New(level string) (*zap.Logger, error) {
	zl := zapcore.InfoLevel
	switch level {
	case "debug":
		zl = zapcore.DebugLevel
	case "warn":
		zl = zapcore.WarnLevel
	case "error":
		zl = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if zl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zl)

	return cfg.Build()
}
