// Package testutil provides shared test doubles for ContractKeeper.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
)

// MockLogger implements logging.Logger and records every entry so tests can
// assert on what a component logged.  Children created through With, Named
// and friends share the parent's message buffer and carry their own fields.
type MockLogger struct {
	state  *mockLoggerState
	fields []logging.Field
	name   string
}

type mockLoggerState struct {
	mu       sync.Mutex
	messages []LogMessage
}

// LogMessage is a single captured entry.
type LogMessage struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the named field, or nil.
func (m LogMessage) Field(key string) interface{} {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{state: &mockLoggerState{}}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)

	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	m.state.messages = append(m.state.messages, LogMessage{
		Level:   level,
		Logger:  m.name,
		Message: msg,
		Fields:  all,
	})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

func (m *MockLogger) child(fields []logging.Field, name string) *MockLogger {
	merged := make([]logging.Field, 0, len(m.fields)+len(fields))
	merged = append(merged, m.fields...)
	merged = append(merged, fields...)
	return &MockLogger{state: m.state, fields: merged, name: name}
}

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	return m.child(fields, m.name)
}

func (m *MockLogger) WithContext(ctx context.Context) logging.Logger {
	var fields []logging.Field
	if id := logging.RequestIDFromContext(ctx); id != "" {
		fields = append(fields, logging.String("request_id", id))
	}
	if id := logging.UserIDFromContext(ctx); id != "" {
		fields = append(fields, logging.String("user_id", id))
	}
	return m.child(fields, m.name)
}

func (m *MockLogger) WithError(err error) logging.Logger {
	if err == nil {
		return m
	}
	return m.child([]logging.Field{logging.Err(err)}, m.name)
}

func (m *MockLogger) Named(name string) logging.Logger {
	if m.name != "" {
		name = m.name + "." + name
	}
	return m.child(nil, name)
}

func (m *MockLogger) Sync() error { return nil }

// GetMessages returns a copy of all captured entries.
func (m *MockLogger) GetMessages() []LogMessage {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	out := make([]LogMessage, len(m.state.messages))
	copy(out, m.state.messages)
	return out
}

// MessagesAt returns the captured entries with the given level.
func (m *MockLogger) MessagesAt(level string) []LogMessage {
	var out []LogMessage
	for _, msg := range m.GetMessages() {
		if msg.Level == level {
			out = append(out, msg)
		}
	}
	return out
}

// Clear drops all captured entries.
func (m *MockLogger) Clear() {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	m.state.messages = m.state.messages[:0]
}

// HasMessage reports whether an entry with exactly this level and message
// was captured.
func (m *MockLogger) HasMessage(level, msg string) bool {
	for _, logged := range m.GetMessages() {
		if logged.Level == level && logged.Message == msg {
			return true
		}
	}
	return false
}

// HasMessageContaining reports whether any entry at level contains substr.
func (m *MockLogger) HasMessageContaining(level, substr string) bool {
	for _, logged := range m.GetMessages() {
		if logged.Level == level && strings.Contains(logged.Message, substr) {
			return true
		}
	}
	return false
}

var _ logging.Logger = (*MockLogger)(nil)

//Personal.AI order the ending
