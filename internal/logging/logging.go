// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application logger. The TUI owns stdout,
// so everything goes to a file under the config directory; stderr is
// reserved for fatal startup failures.
//
// Credentials, verification codes, and cookie values are never logged.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFileName is the log file created under the config directory.
const DefaultFileName = "guide.log"

// New creates a file-backed logger at the given level. An empty path
// resolves to dir/guide.log. The returned cleanup flushes buffered
// entries and must run at exit.
func New(dir, path, level string) (*zap.Logger, func(), error) {
	if path == "" {
		path = filepath.Join(dir, DefaultFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(f),
		parseLevel(level),
	)

	logger := zap.New(core)
	cleanup := func() {
		logger.Sync()
		f.Close()
	}
	return logger, cleanup, nil
}

// parseLevel maps the config string to a zap level, defaulting to info.
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
