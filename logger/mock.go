package logger

import (
	"fmt"
	"sync"
)

type Entry struct {
	Level   string
	Message string
	Fields  []Field
}

// MockLogger keeps every entry in memory so tests can assert on what was logged.
type MockLogger struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(level, msg string, fields []Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Level: level, Message: msg, Fields: fields})
}

func (m *MockLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Messages returns the messages logged at the given level, in order.
func (m *MockLogger) Messages(level string) []string {
	var out []string
	for _, e := range m.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

func (m *MockLogger) SetLogLevel(level string) {}

func (m *MockLogger) Info(msg string, fields ...Field)  { m.record("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...Field)  { m.record("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...Field) { m.record("error", msg, fields) }
func (m *MockLogger) Debug(msg string, fields ...Field) { m.record("debug", msg, fields) }

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.record("info", fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.record("warn", fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.record("error", fmt.Sprintf(format, args...), nil)
}

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.record("debug", fmt.Sprintf(format, args...), nil)
}
