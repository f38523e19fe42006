// Package util holds small pieces of host-wiring infrastructure shared by
// all three cmd/lambadex-* binaries: structured logging and address
// checksum formatting.
package util

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// jsonEncoderConfig is the field layout every LambadeX log sink shares:
// ISO8601 timestamps under "ts" and capitalized level names, so console
// and file output parse identically.
func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// NewLogger builds a console-only structured logger at info level, for
// the common case where a host backend has no durable log file.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.EncoderConfig = jsonEncoderConfig()
	return cfg.Build()
}

// NewLoggerWithFile builds a logger that tees every entry to both stdout
// and a durable file at logPath, creating the containing directory and
// appending to (rather than truncating) any existing file.
func NewLoggerWithFile(logPath string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("util: create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("util: open log file: %w", err)
	}

	encCfg := jsonEncoderConfig()
	sinks := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stdout), zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zap.InfoLevel),
	)
	return zap.New(sinks), nil
}
