// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/JakeFAU/pagewatch/internal/logbuffer"
)

// Options selects the encoder, level, and extra sinks of the logger.
type Options struct {
	Development bool
	Level       string
	// FilePath enables a size-rotated JSON log file when set.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	// Buffer receives every enabled entry for the log viewer.
	Buffer *logbuffer.Buffer
}

// New builds a zap.Logger configured for development or production and tees
// it into the optional file and buffer sinks.
func New(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Development {
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if opts.Level != "" {
		parsed, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.Level = level

	extra := extraCores(opts, level)
	logger, err := cfg.Build(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		if len(extra) == 0 {
			return c
		}
		return zapcore.NewTee(append([]zapcore.Core{c}, extra...)...)
	}))
	if err != nil {
		if opts.Development {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

func extraCores(opts Options, level zapcore.LevelEnabler) []zapcore.Core {
	var cores []zapcore.Core
	if opts.Buffer != nil {
		cores = append(cores, logbuffer.NewCore(opts.Buffer, level))
	}
	if opts.FilePath != "" {
		writer := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			LocalTime:  false,
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), level))
	}
	return cores
}
