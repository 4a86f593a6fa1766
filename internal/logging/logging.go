// Package logging builds the zap logger used by the command layer.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	File   string // rotated with lumberjack when set
	// Verbose also writes to Stderr.
	Verbose bool
	Stderr  io.Writer

	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// New returns a no-op logger when neither a file nor verbose output is
// requested. The returned close func flushes and releases the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	noop := func() error { return nil }
	if strings.TrimSpace(opts.File) == "" && !opts.Verbose {
		return zap.NewNop(), noop, nil
	}

	level, err := zapcore.ParseLevel(defaultString(opts.Level, "info"))
	if err != nil {
		return nil, noop, fmt.Errorf("parse log level: %w", err)
	}

	var cores []zapcore.Core
	var rotator *lumberjack.Logger
	if file := strings.TrimSpace(opts.File); file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, noop, fmt.Errorf("create log directory: %w", err)
		}
		rotator = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    defaultInt(opts.MaxSizeMB, 20),
			MaxBackups: defaultInt(opts.MaxBackups, 5),
			Compress:   opts.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder(opts.Format), zapcore.AddSync(rotator), level))
	}
	if opts.Verbose {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		verboseLevel := level
		if verboseLevel > zapcore.DebugLevel {
			verboseLevel = zapcore.DebugLevel
		}
		cores = append(cores, zapcore.NewCore(encoder("console"), zapcore.AddSync(w), verboseLevel))
	}

	log := zap.New(zapcore.NewTee(cores...))
	closeFn := func() error {
		_ = log.Sync()
		if rotator != nil {
			return rotator.Close()
		}
		return nil
	}
	return log, closeFn, nil
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.TimeKey = "ts"
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func defaultString(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}

func defaultInt(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}
