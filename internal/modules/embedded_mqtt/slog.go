package embeddedmqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// busLogHandler forwards the broker's slog records to zap.
type busLogHandler struct {
	log *zap.Logger
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	case l >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func (h *busLogHandler) Enabled(_ context.Context, l slog.Level) bool {
	return h.log.Core().Enabled(zapLevel(l))
}

func (h *busLogHandler) Handle(_ context.Context, r slog.Record) error {
	lvl := zapLevel(r.Level)
	fields := make([]zap.Field, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		if err, ok := a.Value.Any().(error); ok && errors.Is(err, io.EOF) {
			// clients hanging up are routine
			lvl = zapcore.DebugLevel
		}
		fields = append(fields, attrField(a))
		return true
	})
	if ce := h.log.Check(lvl, r.Message); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (h *busLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, attrField(a))
	}
	return &busLogHandler{log: h.log.With(fields...)}
}

func (h *busLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &busLogHandler{log: h.log.With(zap.Namespace(name))}
}

func attrField(a slog.Attr) zap.Field {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return zap.String(a.Key, v.String())
	case slog.KindInt64:
		return zap.Int64(a.Key, v.Int64())
	case slog.KindBool:
		return zap.Bool(a.Key, v.Bool())
	case slog.KindDuration:
		return zap.Duration(a.Key, v.Duration())
	default:
		return zap.Any(a.Key, v.Any())
	}
}
