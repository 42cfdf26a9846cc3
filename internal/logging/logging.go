// Package logging builds the zap logger used across flightdesk. The console
// owns the terminal, so the default sink is a rotated file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Stderr, when set, receives a console-formatted copy. Used by one-shot
	// commands; never by the interactive console.
	Stderr io.Writer
	Name   string
}

func Defaults(file string) Options {
	return Options{
		Level:      "info",
		Format:     FormatJSON,
		File:       file,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Name:       "flightdesk",
	}
}

// New returns a logger and a flush function. With no file and no stderr the
// logger discards everything.
func New(opts Options) (*zap.Logger, func(), error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.TrimSpace(opts.Level))); err != nil || opts.Level == "" {
		level.SetLevel(zap.InfoLevel)
	}

	var cores []zapcore.Core
	var rotator *lumberjack.Logger
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, errdef.Wrap(errdef.CodeFilesystem, err, "create log dir")
		}
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder(opts.Format), zapcore.AddSync(rotator), level))
	}
	if opts.Stderr != nil {
		cores = append(cores, zapcore.NewCore(encoder(FormatConsole), zapcore.Lock(zapcore.AddSync(opts.Stderr)), level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), func() {}, nil
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel))
	if opts.Name != "" {
		logger = logger.Named(opts.Name)
	}
	flush := func() {
		_ = logger.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return logger, flush, nil
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if strings.EqualFold(format, FormatConsole) {
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}
