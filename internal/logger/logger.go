// Package logger provides leveled, structured logging for FedFS.
//
// The package exposes a small package-level API so callers never carry a
// logger instance around. Output goes through zap; the default configuration
// writes human-readable text at INFO level until Init is called.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar = newDefault()

func newDefault() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	log, _ := cfg.Build(zap.AddCallerSkip(1))
	return log.Sugar()
}

// Init reconfigures the global logger.
//
// Parameters:
//   - level: minimum level to emit (DEBUG, INFO, WARN, ERROR; case-insensitive)
//   - format: "text" for console output, "json" for structured output
//
// Returns an error if the zap configuration cannot be built.
func Init(level, format string) error {
	var cfg zap.Config
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	log, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	sugar = log.Sugar()
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs a debug-level message with printf-style formatting.
func Debug(format string, v ...any) {
	sugar.Debugf(format, v...)
}

// Info logs an info-level message with printf-style formatting.
func Info(format string, v ...any) {
	sugar.Infof(format, v...)
}

// Warn logs a warning-level message with printf-style formatting.
func Warn(format string, v ...any) {
	sugar.Warnf(format, v...)
}

// Error logs an error-level message with printf-style formatting.
func Error(format string, v ...any) {
	sugar.Errorf(format, v...)
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	_ = sugar.Sync()
}
