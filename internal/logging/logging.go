// Package logging builds the process logger. Verbosity follows the INFO=1
// and DEBUG=1 environment switches; without either only warnings and errors
// are printed.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func isInfo() bool {
	return os.Getenv("INFO") == "1"
}

func isDebug() bool {
	return os.Getenv("DEBUG") == "1"
}

// Level reports the level selected by the environment.
func Level() zapcore.Level {
	switch {
	case isDebug():
		return zapcore.DebugLevel
	case isInfo():
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

type Options struct {
	// Verbose raises the level to at least info.
	Verbose bool
	// File, when set, also writes JSON lines to a rotated log file.
	File string
}

// New returns a console logger on stderr, teed to a rotated file when
// opts.File is set.
func New(opts Options) (*zap.Logger, error) {
	level := Level()
	if opts.Verbose && level > zapcore.InfoLevel {
		level = zapcore.InfoLevel
	}
	enabled := zap.NewAtomicLevelAt(level)

	console := zap.NewDevelopmentEncoderConfig()
	console.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(console), zapcore.Lock(os.Stderr), enabled),
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, err
		}
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), file, enabled))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}
