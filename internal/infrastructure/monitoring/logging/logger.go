// Package logging is the structured logger every ContractKeeper component is
// handed.  Only this package imports zap; the binaries build one Logger from
// configuration, install it with SetDefault and inject it downwards.
package logging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Logger is safe for concurrent use.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal exits the process after logging; reserved for startup.
	Fatal(msg string, fields ...Field)

	With(fields ...Field) Logger
	// WithContext adds the request and user ids found in ctx.
	WithContext(ctx context.Context) Logger
	// WithError adds err, and its captured call sites when it has any.
	// A nil err adds nothing.
	WithError(err error) Logger
	// Named extends the dotted logger name.
	Named(name string) Logger
	Sync() error
}

// ─────────────────────────────────────────────────────────────────────────────
// Fields
// ─────────────────────────────────────────────────────────────────────────────

// Field is one key/value attached to an entry.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, val string) Field                 { return Field{key, val} }
func Strings(key string, val []string) Field       { return Field{key, val} }
func Int(key string, val int) Field                { return Field{key, val} }
func Int64(key string, val int64) Field            { return Field{key, val} }
func Float64(key string, val float64) Field        { return Field{key, val} }
func Bool(key string, val bool) Field              { return Field{key, val} }
func Duration(key string, val time.Duration) Field { return Field{key, val} }
func Time(key string, val time.Time) Field         { return Field{key, val} }
func Any(key string, val interface{}) Field        { return Field{key, val} }

// Err records err's message under "error".
func Err(err error) Field {
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	return Field{"error", msg}
}

func (f Field) zap() zap.Field {
	switch v := f.Value.(type) {
	case string:
		return zap.String(f.Key, v)
	case []string:
		return zap.Strings(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case float64:
		return zap.Float64(f.Key, v)
	case bool:
		return zap.Bool(f.Key, v)
	case time.Duration:
		return zap.Duration(f.Key, v)
	case time.Time:
		return zap.Time(f.Key, v)
	case error:
		return zap.NamedError(f.Key, v)
	}
	return zap.Any(f.Key, f.Value)
}

func zapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, len(fields))
	for i := range fields {
		out[i] = fields[i].zap()
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Request-scoped values
// ─────────────────────────────────────────────────────────────────────────────

type ctxKey uint8

const (
	requestIDKey ctxKey = iota
	userIDKey
)

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// RequestIDFromContext is "" when ctx is nil or carries no id.
func RequestIDFromContext(ctx context.Context) string { return lookup(ctx, requestIDKey) }

// UserIDFromContext is "" when ctx is nil or carries no principal.
func UserIDFromContext(ctx context.Context) string { return lookup(ctx, userIDKey) }

func lookup(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

func contextFields(ctx context.Context) []Field {
	var fields []Field
	for _, kv := range [...]struct {
		name string
		key  ctxKey
	}{{"request_id", requestIDKey}, {"user_id", userIDKey}} {
		if v := lookup(ctx, kv.key); v != "" {
			fields = append(fields, String(kv.name, v))
		}
	}
	return fields
}

// ─────────────────────────────────────────────────────────────────────────────
// Construction
// ─────────────────────────────────────────────────────────────────────────────

// LogConfig is the "monitoring.log" configuration block.
type LogConfig struct {
	// Level is debug, info, warn or error; anything else means info.
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	// Format is "json" or "console".
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	// OutputPaths are zap sink URLs or file paths.  Unset means stdout;
	// an explicit empty list is an error.
	OutputPaths      []string `mapstructure:"output_paths" yaml:"output_paths" json:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths" yaml:"error_output_paths" json:"error_output_paths"`
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil || lvl > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoderFor(format string) (zapcore.Encoder, []zap.Option) {
	if format == "console" {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.TimeKey = "ts"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(ec), []zap.Option{zap.Development()}
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec), nil
}

// NewLogger opens the configured sinks and returns a zap-backed Logger.
func NewLogger(cfg LogConfig) (Logger, error) {
	outputs := cfg.OutputPaths
	if outputs == nil {
		outputs = []string{"stdout"}
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("logging: no output paths configured")
	}
	errOutputs := cfg.ErrorOutputPaths
	if len(errOutputs) == 0 {
		errOutputs = []string{"stderr"}
	}

	sink, closeSink, err := zap.Open(outputs...)
	if err != nil {
		return nil, fmt.Errorf("logging: open %v: %w", outputs, err)
	}
	errSink, _, err := zap.Open(errOutputs...)
	if err != nil {
		closeSink()
		return nil, fmt.Errorf("logging: open %v: %w", errOutputs, err)
	}

	enc, opts := encoderFor(cfg.Format)
	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(parseLevel(cfg.Level)))
	opts = append(opts, zap.ErrorOutput(errSink), zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{z: zap.New(core, opts...)}, nil
}

// NewDefaultLogger is an info-level JSON logger on stdout, or a no-op logger
// if stdout cannot be opened.
func NewDefaultLogger() Logger { return orNop(NewLogger(LogConfig{Level: LevelInfo})) }

// NewDevelopmentLogger is a debug-level console logger.
func NewDevelopmentLogger() Logger {
	return orNop(NewLogger(LogConfig{Level: LevelDebug, Format: "console"}))
}

func orNop(l Logger, err error) Logger {
	if err != nil {
		return NewNopLogger()
	}
	return l
}

// NewLoggerFromCore wraps core, e.g. a zaptest/observer core in tests.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{z: zap.New(core, zap.AddCallerSkip(1))}
}

// ─────────────────────────────────────────────────────────────────────────────
// zap implementation
// ─────────────────────────────────────────────────────────────────────────────

type zapLogger struct {
	z *zap.Logger
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, zapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, zapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, zapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, zapFields(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, zapFields(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &zapLogger{z: l.z.With(zapFields(fields)...)}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger { return l.With(contextFields(ctx)...) }

// stackTracer is implemented by pkg/errors.AppError.
type stackTracer interface{ StackTrace() string }

func (l *zapLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	fields := []Field{Err(err)}
	var st stackTracer
	if errors.As(err, &st) {
		if trace := st.StackTrace(); trace != "" {
			fields = append(fields, String("error_stack", trace))
		}
	}
	return l.With(fields...)
}

func (l *zapLogger) Named(name string) Logger { return &zapLogger{z: l.z.Named(name)} }
func (l *zapLogger) Sync() error              { return l.z.Sync() }

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Field)               {}
func (nopLogger) Info(string, ...Field)                {}
func (nopLogger) Warn(string, ...Field)                {}
func (nopLogger) Error(string, ...Field)               {}
func (nopLogger) Fatal(string, ...Field)               {}
func (n nopLogger) With(...Field) Logger               { return n }
func (n nopLogger) WithContext(context.Context) Logger { return n }
func (n nopLogger) WithError(error) Logger             { return n }
func (n nopLogger) Named(string) Logger                { return n }
func (nopLogger) Sync() error                          { return nil }

const slowOperationThreshold = 30 * time.Second

// LogOperationDuration reports op as completed, at WARN once it took longer
// than 30s.
func LogOperationDuration(l Logger, op string, start time.Time, fields ...Field) {
	took := time.Since(start)
	fields = append(fields, String("operation", op), Int64("duration_ms", took.Milliseconds()))
	if took > slowOperationThreshold {
		l.Warn("slow operation completed", fields...)
	} else {
		l.Info("operation completed", fields...)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Process default
// ─────────────────────────────────────────────────────────────────────────────

var defaultLogger struct {
	sync.RWMutex
	l Logger
}

func init() { defaultLogger.l = nopLogger{} }

// SetDefault installs l as the process logger; nil is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultLogger.Lock()
	defaultLogger.l = l
	defaultLogger.Unlock()
}

func Default() Logger {
	defaultLogger.RLock()
	defer defaultLogger.RUnlock()
	return defaultLogger.l
}

//Personal.AI order the ending
