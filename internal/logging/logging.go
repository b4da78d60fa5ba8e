// Package logging builds the daemon's zap logger and provides field
// helpers that keep credentials out of log output.
package logging

import (
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger writing to stderr with the given level and
// format ("json" or "console"). When provider is non-nil the logger
// additionally emits records through the OTEL logging bridge.
func New(level, format string, provider log.LoggerProvider) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), lvl)
	if provider != nil {
		core = zapcore.NewTee(core,
			otelzap.NewCore("compactd", otelzap.WithLoggerProvider(provider)))
	}
	return zap.New(core, zap.AddCaller()), nil
}

// RedactedString creates a field carrying only the value's length, for
// logging the presence of a credential without its content.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}
