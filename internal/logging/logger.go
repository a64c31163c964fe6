// Package logging provides the process-wide structured logger.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	once   sync.Once
)

// Init builds the global logger from APP_ENV. Safe to call multiple times.
func Init() {
	once.Do(func() {
		mu.RLock()
		set := logger != nil
		mu.RUnlock()
		if set {
			return
		}
		l, err := build(os.Getenv("APP_ENV"))
		if err != nil {
			l = zap.NewNop()
		}
		Set(l)
	})
}

func build(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(strings.TrimSpace(env), "production") {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	// The MCP transport owns stdout.
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Set replaces the global logger (tests inject zaptest loggers here).
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	sugar = l.Sugar()
	mu.Unlock()
}

// L returns the global structured logger.
func L() *zap.Logger {
	Init()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// S returns the global sugared logger (printf-style).
func S() *zap.SugaredLogger {
	Init()
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Sync flushes any buffered log entries. Call before exit.
func Sync() {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
