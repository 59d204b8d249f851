// Package logger provides the structured logger used across key-ledger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.SugaredLogger so callers can log a message followed by
// alternating key/value pairs.
type Logger struct {
	*zap.SugaredLogger

	min zapcore.Level
}

// Production returns an INFO level logger emitting JSON lines.
func Production() *Logger {
	return New(false)
}

// Development returns a DEBUG level logger with colored console output.
func Development() *Logger {
	return New(true)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), min: zapcore.FatalLevel}
}

// New creates a logger. In debug mode it uses zap's development preset,
// otherwise the production preset.
func New(debug bool) *Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(minLevel(debug))

	enc := &config.EncoderConfig
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.MessageKey = "message"
	enc.LevelKey = "level"
	enc.CallerKey = "caller"
	enc.StacktraceKey = "stacktrace"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	base, err := config.Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1), // skip the wrapper methods below
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		base = zap.NewExample()
	}

	return Wrap(base, debug)
}

// Wrap adapts an existing zap logger. Debug entries pass only when debug is set.
func Wrap(base *zap.Logger, debug bool) *Logger {
	return &Logger{SugaredLogger: base.Sugar(), min: minLevel(debug)}
}

func minLevel(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func (l *Logger) derive(s *zap.SugaredLogger) *Logger {
	return &Logger{SugaredLogger: s, min: l.min}
}

// WithFields returns a child logger carrying the given key/value pairs.
func (l *Logger) WithFields(fields ...any) *Logger {
	return l.derive(l.With(fields...))
}

// WithError returns a child logger with an "error" field. A nil error is a no-op.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.derive(l.With("error", err.Error()))
}

// Named returns a child logger scoped to a component name.
func (l *Logger) Named(name string) *Logger {
	return l.derive(l.SugaredLogger.Named(name))
}

func (l *Logger) Debug(msg string, fields ...any) {
	if l.min <= zapcore.DebugLevel {
		l.Debugw(msg, fields...)
	}
}

func (l *Logger) Info(msg string, fields ...any) {
	if l.min <= zapcore.InfoLevel {
		l.Infow(msg, fields...)
	}
}

func (l *Logger) Warn(msg string, fields ...any) {
	if l.min <= zapcore.WarnLevel {
		l.Warnw(msg, fields...)
	}
}

func (l *Logger) Error(msg string, fields ...any) {
	if l.min <= zapcore.ErrorLevel {
		l.Errorw(msg, fields...)
	}
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...any) {
	l.Fatalw(msg, fields...)
}
