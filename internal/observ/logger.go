package observ

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger for env at the LOG_LEVEL value
// level. Production writes sampled JSON with ISO8601 timestamps; any other
// env gets the coloured console encoder. Stack traces are kept for errors
// and above.
func NewLogger(env, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", "fretboard"), zap.String("env", env)),
	)
}

// ParseLevel reads a LOG_LEVEL value. Case and surrounding space are
// ignored and an empty value means info.
func ParseLevel(level string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error, dpanic, panic, fatal", level)
	}
	return lvl, nil
}
