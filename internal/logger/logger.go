// Package logger builds the zap loggers used by the API server and the
// indexer CLI and carries request-scoped loggers through context.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bbbkawaii/toyclaw-sub000/internal/version"
)

// ServiceName is stamped on every log line.
const ServiceName = "toyclaw"

// Components that build a logger.
const (
	ComponentAPI     = "api"
	ComponentIndexer = "indexer"
)

// Options selects the encoding and level of a logger.
type Options struct {
	Env       string // prod: JSON; local/dev/docker/test: console
	Level     string // optional override: debug, info, warn, error
	Component string // api or indexer
}

// New creates a zap logger whose lines carry service, component and version.
func New(opts Options) (*zap.Logger, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func buildConfig(opts Options) (zap.Config, error) {
	var cfg zap.Config
	switch opts.Env {
	case "prod":
		cfg = zap.NewProductionConfig()
		// One wide event per request; none may be sampled away.
		cfg.Sampling = nil
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "local", "dev", "docker", "test":
		cfg = zap.NewDevelopmentConfig()
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", opts.Env)
	}

	if opts.Level != "" {
		level, err := ParseLevel(opts.Level)
		if err != nil {
			return zap.Config{}, err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	cfg.InitialFields = map[string]any{
		"service": ServiceName,
		"version": version.Version,
	}
	if opts.Component != "" {
		cfg.InitialFields["component"] = opts.Component
	}
	return cfg, nil
}

// ParseLevel parses a logging.level config value.
func ParseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
