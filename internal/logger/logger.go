package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultService names the process in every log line unless SERVICE_NAME is set.
const DefaultService = "authcore"

// Config controls logger level, encoding and the service name attached to entries.
type Config struct {
	Service string
	Level   zapcore.Level
	Console bool
}

// ConfigFromEnv reads SERVICE_NAME, LOG_LEVEL and LOG_FORMAT ("console" or "json").
// Unknown levels fall back to info.
func ConfigFromEnv() Config {
	cfg := Config{
		Service: os.Getenv("SERVICE_NAME"),
		Level:   zapcore.InfoLevel,
		Console: strings.EqualFold(os.Getenv("LOG_FORMAT"), "console"),
	}
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if lvl, err := zapcore.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		cfg.Level = lvl
	}
	return cfg
}

// Init builds the process logger. Every entry carries a "service" field.
func Init(cfg Config) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	encoder := zapcore.NewJSONEncoder(encoderCfg)
	if cfg.Console {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), cfg.Level)
	return newLogger(core, cfg.Service), nil
}

func newLogger(core zapcore.Core, service string) *zap.Logger {
	if service == "" {
		service = DefaultService
	}
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", service)),
	)
}
