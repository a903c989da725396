package logger

import (
	"go.uber.org/zap"
)

var base *zap.Logger

func Init() {
	l, err := zap.NewProduction(zap.WithCaller(false))
	if err != nil {
		// zap's production config only fails on bad sink paths;
		// fall back to a no-op logger rather than panicking at boot.
		l = zap.NewNop()
	}
	base = l
	base.Info("logger initialized")
}

func logger() *zap.Logger {
	if base == nil {
		Init()
	}
	return base
}

func toFields(fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func Info(msg string, fields map[string]any) {
	logger().Info(msg, toFields(fields)...)
}

func Warn(msg string, fields map[string]any) {
	logger().Warn(msg, toFields(fields)...)
}

func Error(msg string, fields map[string]any) {
	logger().Error(msg, toFields(fields)...)
}

// Fatal logs at fatal level and exits; zap syncs the sink before
// the process terminates.
func Fatal(msg string, fields map[string]any) {
	logger().Fatal(msg, toFields(fields)...)
}
