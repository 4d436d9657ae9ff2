package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestNew(t *testing.T) {
	for _, backend := range []string{"", "zap", "logrus"} {
		l, err := New(Options{Backend: backend, Level: "debug", Format: "console"})
		require.NoError(t, err)
		l.Info("this is a info log test", WithField("backend", backend))
		l.Debug("this is a debug log test")
		l.Warnf("this is a %s log test", "warn")
	}

	_, err := New(Options{Backend: "syslog"})
	assert.Error(t, err)
}

func TestZapLoggerLevel(t *testing.T) {
	l, err := NewZapLogger("json")
	require.NoError(t, err)
	l.SetLogLevel("error")
	assert.False(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Zap().Core().Enabled(zapcore.ErrorLevel))
	l.SetLogLevel("debug")
	assert.True(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
}

func TestWrapZap(t *testing.T) {
	l := WrapZap(zaptest.NewLogger(t))
	l.SetLogLevel("error")
	l.Error("this is a error log test", WithField("age", 100), WithError(errors.New("boom")))
	l.Debugf("this is a %s log test", "debug")
}

func TestMockLogger(t *testing.T) {
	m := NewMockLogger()
	m.Info("first", WithField("k", "v"))
	m.Errorf("second %d", 2)
	m.Info("third")

	assert.Equal(t, []string{"first", "third"}, m.Messages("info"))
	assert.Equal(t, []string{"second 2"}, m.Messages("error"))
	assert.Len(t, m.Entries(), 3)
	assert.Equal(t, "k", m.Entries()[0].Fields[0].Key)
}
