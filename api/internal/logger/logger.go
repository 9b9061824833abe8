package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New строит zap-логгер: format=json даёт production-конфиг, иначе development.
func New(levelStr, format string) *zap.Logger {
	level := zapcore.InfoLevel
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewNop: логгер для тестов.
func NewNop() *zap.Logger { return zap.NewNop() }
