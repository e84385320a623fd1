package sgd

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig describes sgd logging options.
type LogConfig struct {
	Level     string
	Format    string
	Output    string
	AddSource bool
	UTC       bool
}

// NewLogger creates a structured logger for sgd.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}

	output := "stdout"
	if strings.ToLower(cfg.Output) == "stderr" {
		output = "stderr"
	}

	encoding := "console"
	if strings.ToLower(cfg.Format) == "json" {
		encoding = "json"
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.UTC {
		enc.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			zapcore.ISO8601TimeEncoder(t.UTC(), pae)
		}
	}

	version, commit := buildVersion()
	zcfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(lvl),
		Encoding:          encoding,
		EncoderConfig:     enc,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.AddSource,
		DisableStacktrace: true,
		InitialFields: map[string]any{
			"app":     "sgd",
			"pid":     os.Getpid(),
			"version": version,
			"commit":  commit,
		},
	}
	return zcfg.Build()
}

func buildVersion() (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev", "unknown"
	}
	version := info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	commit := "unknown"
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			commit = setting.Value
			break
		}
	}
	return version, commit
}
