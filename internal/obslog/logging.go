// Package obslog wraps zap.Logger with allocation-domain logging
// helpers: a service-tagged logger with chainable With* decorators and
// a handful of structured event methods, plus a package-level global
// singleton for call sites that don't carry one through explicitly.
package obslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with allocator service metadata.
type Logger struct {
	*zap.Logger
	serviceName string
	environment string
}

// Config configures the logger's encoding and destination.
type Config struct {
	Level       string
	ServiceName string
	Environment string
	Format      string // json or console
}

// New creates a Logger. Unset Config fields fall back to sane defaults
// so zero-value Config{} is usable.
func New(opts ...Config) *Logger {
	cfg := Config{
		Level:       "info",
		ServiceName: "huoyuan-allocator",
		Environment: getEnv("ALLOCATOR_ENV", "development"),
		Format:      "json",
	}
	if len(opts) > 0 {
		o := opts[0]
		if o.Level != "" {
			cfg.Level = o.Level
		}
		if o.ServiceName != "" {
			cfg.ServiceName = o.ServiceName
		}
		if o.Environment != "" {
			cfg.Environment = o.Environment
		}
		if o.Format != "" {
			cfg.Format = o.Format
		}
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	base := zap.New(core, zap.AddCaller()).With(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	)

	return &Logger{Logger: base, serviceName: cfg.ServiceName, environment: cfg.Environment}
}

// NewNop returns a Logger that discards everything, for tests and
// callers that don't want I/O.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), serviceName: "noop"}
}

// WithFields adds structured fields to the logger context.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &Logger{Logger: l.Logger.With(zapFields...), serviceName: l.serviceName, environment: l.environment}
}

// WithSession tags the logger with a session ID.
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("session_id", sessionID)), serviceName: l.serviceName, environment: l.environment}
}

// SolveEventLogger logs the outcome of a single solve invocation.
func (l *Logger) SolveEventLogger(status string, objective float64, durationSeconds float64, products, rounds int) {
	l.Info("allocation solve completed",
		zap.String("status", status),
		zap.Float64("objective_value", objective),
		zap.Float64("duration_seconds", durationSeconds),
		zap.Int("products", products),
		zap.Int("rounds", rounds),
	)
}

// ConstraintViolationLogger logs a single validation violation.
func (l *Logger) ConstraintViolationLogger(family, productCode, round string, detail string) {
	l.Warn("constraint violation",
		zap.String("family", family),
		zap.String("product_code", productCode),
		zap.String("round", round),
		zap.String("detail", detail),
	)
}

// PostProcessLogger logs a post-processing adjustment made to a cell.
func (l *Logger) PostProcessLogger(pass, productCode, round string, before, after float64) {
	l.Debug("post-process adjustment",
		zap.String("pass", pass),
		zap.String("product_code", productCode),
		zap.String("round", round),
		zap.Float64("before", before),
		zap.Float64("after", after),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var global *Logger

// InitGlobal initializes the package-level logger.
func InitGlobal(opts ...Config) {
	global = New(opts...)
}

// Global returns the package-level logger, lazily creating a default
// one if InitGlobal was never called.
func Global() *Logger {
	if global == nil {
		global = New()
	}
	return global
}
