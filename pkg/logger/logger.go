// Package logger provides component-scoped logging for marvin.
// All packages log through the same API: a component name, a message,
// and an optional field map. Output goes to the console via zap.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	debugOn bool
)

func init() {
	base = build(false)
}

func build(debug bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.DisableStacktrace = true
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	l, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		// zap's development config cannot fail to build with these options,
		// but fall back to a no-op logger rather than panic at init.
		return zap.NewNop()
	}
	return l
}

// SetDebug toggles debug-level output at runtime.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	if debugOn == enabled {
		return
	}
	debugOn = enabled
	base = build(enabled)
}

func logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func fieldsOf(component string, fields map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	out = append(out, zap.String("component", component))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func Info(msg string)  { logger().Info(msg) }
func Warn(msg string)  { logger().Warn(msg) }
func Error(msg string) { logger().Error(msg) }
func Debug(msg string) { logger().Debug(msg) }

// InfoC logs a message scoped to a component.
func InfoC(component, msg string) {
	logger().Info(msg, zap.String("component", component))
}

// InfoCF logs a message scoped to a component with structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	logger().Info(msg, fieldsOf(component, fields)...)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	logger().Warn(msg, fieldsOf(component, fields)...)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	logger().Error(msg, fieldsOf(component, fields)...)
}

func DebugCF(component, msg string, fields map[string]interface{}) {
	logger().Debug(msg, fieldsOf(component, fields)...)
}
