// Package logger provides structured logging for coursesync.
//
// The logger supports multiple log levels (DEBUG, INFO, WARN, ERROR) and writes either
// human-readable console lines or one JSON object per line. Every entry carries a
// timestamp and can include arbitrary structured fields. Output is produced by zap.
//
// Example usage:
//
//	logger.Info("Stored course", logger.Fields{
//	    "course_code": "COSC 1P02",
//	    "url":         pageURL,
//	})
//
//	logger.Error("Error storing course", logger.Fields{
//	    "course_code": code,
//	}, err)
package logger

import (
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Format selects the encoder
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var zapLevels = map[Level]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

// Logger provides structured logging
type Logger struct {
	zl *zap.Logger
}

// Fields represents structured log fields
type Fields map[string]interface{}

var defaultLogger *Logger

func init() {
	defaultLogger = New(LevelInfo, FormatConsole, os.Stderr)
}

// ParseLevel converts a level name such as "debug" or "WARN" to a Level.
// Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	level := Level(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := zapLevels[level]; ok {
		return level
	}
	return LevelInfo
}

// New creates a logger with the given minimum level, encoding and destination.
// Messages below the minimum level are discarded.
func New(level Level, format Format, output io.Writer) *Logger {
	zapLevel, ok := zapLevels[level]
	if !ok {
		zapLevel = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	var encoder zapcore.Encoder
	if format == FormatJSON {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), zapLevel)
	return &Logger{zl: zap.New(core)}
}

// SetDefault sets the package-level logger used by Debug, Info, Warn and Error
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Default returns the package-level logger
func Default() *Logger {
	return defaultLogger
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{zl: l.zl.With(toZap(fields, nil)...)}
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// toZap converts Fields to zap fields in key order so output is stable
func toZap(fields Fields, err error) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	if err != nil {
		out = append(out, zap.Error(err))
	}
	return out
}

// Enabled reports whether entries at level would be written
func (l *Logger) Enabled(level Level) bool {
	zapLevel, ok := zapLevels[level]
	if !ok {
		return false
	}
	return l.zl.Core().Enabled(zapLevel)
}

// Debug logs a debug message with optional structured fields.
func (l *Logger) Debug(message string, fields Fields) {
	l.zl.Debug(message, toZap(fields, nil)...)
}

// Info logs an informational message with optional structured fields.
func (l *Logger) Info(message string, fields Fields) {
	l.zl.Info(message, toZap(fields, nil)...)
}

// Warn logs a warning message with optional structured fields.
func (l *Logger) Warn(message string, fields Fields) {
	l.zl.Warn(message, toZap(fields, nil)...)
}

// Error logs an error message with optional structured fields and an error object.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.zl.Error(message, toZap(fields, err)...)
}

// Package-level convenience functions using default logger

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	defaultLogger.Debug(message, fields)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	defaultLogger.Info(message, fields)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields) {
	defaultLogger.Warn(message, fields)
}

// Error logs an error message with the default logger
func Error(message string, fields Fields, err error) {
	defaultLogger.Error(message, fields, err)
}
