package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pagelift/api/internal/platform/requestctx"
)

// NewLogger constructs the process-wide zap logger emitting structured JSON.
// The level comes from PAGELIFT_LOG_LEVEL, falling back to LOG_LEVEL, then
// info.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.Config{
		Level:             logLevelFromEnv(),
		Encoding:          "json",
		EncoderConfig:     encoderConfig(),
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	return cfg.Build()
}

func logLevelFromEnv() zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	for _, env := range []string{"PAGELIFT_LOG_LEVEL", "LOG_LEVEL"} {
		raw := strings.ToLower(strings.TrimSpace(os.Getenv(env)))
		if raw == "" {
			continue
		}
		if err := level.UnmarshalText([]byte(raw)); err == nil {
			return level
		}
	}
	level.SetLevel(zapcore.InfoLevel)
	return level
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(level.String()))
		},
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
	}
}

// WithLogger injects the logger into the provided context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return requestctx.WithLogger(ctx, logger)
}

// FromContext retrieves the logger from context, defaulting to a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	return requestctx.Logger(ctx)
}

// PrintfAdapter bridges zap into printf-style logging interfaces.
type PrintfAdapter struct {
	logger *zap.SugaredLogger
}

// NewPrintfAdapter creates a PrintfAdapter backed by the supplied logger.
func NewPrintfAdapter(logger *zap.Logger) PrintfAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return PrintfAdapter{logger: logger.Sugar()}
}

// Printf logs the formatted message at info level.
func (a PrintfAdapter) Printf(format string, args ...any) {
	a.logger.Infof(format, args...)
}

// WithRequestFields augments the logger with standard request-scoped fields.
func WithRequestFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(fields...)
}
