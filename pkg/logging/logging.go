// Package logging builds the zap logger used by the CLI. Logs go to stderr so
// they never interleave with the reports on stdout.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewConfig returns a console config at the given level with colored levels
// and no stack traces.
func NewConfig(level string, color bool) (zap.Config, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("parsing log level: %w", err)
	}
	encodeLevel := zapcore.CapitalLevelEncoder
	if color {
		encodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zap.Config{
		Level:    lvl,
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      zapcore.OmitKey,
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeLevel,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}, nil
}

// New builds a named logger.
func New(name, level string, color bool) (*zap.Logger, error) {
	cfg, err := NewConfig(level, color)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Named(name), nil
}
