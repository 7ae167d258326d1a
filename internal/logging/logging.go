package logging

import (
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger writing to w, normally stderr. Console
// encoding is used when a human is reading the terminal table; JSON otherwise.
func NewLogger(w io.Writer, level string, console bool) *zap.Logger {
	enc := zapcore.NewJSONEncoder(encoderConfig())
	if console {
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), ParseLevel(level))
	return zap.New(core, zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(w))))
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to a zap level.
// Unknown strings default to InfoLevel.
func ParseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// RunLogger returns a child logger with run-context fields and the run id.
func RunLogger(base *zap.Logger, category string) (*zap.Logger, string) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	runID := id.String()
	return base.With(
		zap.String("run_id", runID),
		zap.String("category", category),
	), runID
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
