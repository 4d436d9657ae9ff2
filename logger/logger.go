package logger

import (
	"fmt"
	"strings"
)

type Logger interface {
	SetLogLevel(level string)

	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)

	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type Field struct {
	Key string
	Val interface{}
}

func WithField(key string, val interface{}) Field {
	return Field{Key: key, Val: val}
}

func WithError(err error) Field {
	return Field{Key: "error", Val: err}
}

type Options struct {
	Backend string // zap or logrus
	Level   string
	Format  string // console or json
}

// New builds a logger for the configured backend.
func New(opts Options) (Logger, error) {
	var l Logger
	switch strings.ToLower(opts.Backend) {
	case "", "zap":
		zl, err := NewZapLogger(opts.Format)
		if err != nil {
			return nil, err
		}
		l = zl
	case "logrus":
		l = NewLogrusLogger(opts.Format)
	default:
		return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
	l.SetLogLevel(opts.Level)
	return l, nil
}
