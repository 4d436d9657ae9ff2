package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

var _ Logger = (*ZapLogger)(nil)

func NewZapLogger(format string) (*ZapLogger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	cfg := zap.NewDevelopmentConfig()
	if strings.ToLower(format) == "json" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = level
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{logger: l, level: level}, nil
}

// WrapZap adapts an existing zap logger, e.g. one from zaptest. The level of a wrapped
// logger is owned by its core and SetLogLevel is a no-op.
func WrapZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: l}
}

// Zap exposes the underlying logger so it can be installed with zap.ReplaceGlobals.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.logger
}

func (l *ZapLogger) SetLogLevel(level string) {
	if l.level == (zap.AtomicLevel{}) {
		return
	}
	switch strings.ToLower(level) {
	case "debug":
		l.level.SetLevel(zapcore.DebugLevel)
	case "warn":
		l.level.SetLevel(zapcore.WarnLevel)
	case "error":
		l.level.SetLevel(zapcore.ErrorLevel)
	default:
		l.level.SetLevel(zapcore.InfoLevel)
	}
}

func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, zapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, zapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, zapFields(fields)...)
}

func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, zapFields(fields)...)
}

func (l *ZapLogger) Infof(format string, args ...interface{}) {
	l.logger.Sugar().Infof(format, args...)
}

func (l *ZapLogger) Warnf(format string, args ...interface{}) {
	l.logger.Sugar().Warnf(format, args...)
}

func (l *ZapLogger) Errorf(format string, args ...interface{}) {
	l.logger.Sugar().Errorf(format, args...)
}

func (l *ZapLogger) Debugf(format string, args ...interface{}) {
	l.logger.Sugar().Debugf(format, args...)
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Val.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Val))
	}
	return out
}
