package logger

import (
	"fmt"
	"sync"
)

type TestLogEntry struct {
	Severity  string
	Message   string
	Arguments []interface{}
}

// TestLogger records every entry in memory. Children created with With or
// WithPrefix share the parent's log buffer, so assertions can be made on the
// root instance handed to the code under test.
type TestLogger struct {
	metadata map[string]interface{}
	buf      *testBuffer
}

type testBuffer struct {
	mu   sync.Mutex
	logs []TestLogEntry
}

var _ Logger = (*TestLogger)(nil)

// NewTestLogger returns a new Logger instance useful for testing
func NewTestLogger() *TestLogger {
	return &TestLogger{buf: &testBuffer{}}
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	return &TestLogger{metadata: copyMetadata(c.metadata, metadata), buf: c.buf}
}

func (c *TestLogger) WithPrefix(prefix string) Logger {
	return c
}

func (c *TestLogger) IsLevelEnabled(level LogLevel) bool {
	return level < LevelNone
}

// Logs returns a snapshot of the recorded entries.
func (c *TestLogger) Logs() []TestLogEntry {
	c.buf.mu.Lock()
	defer c.buf.mu.Unlock()
	out := make([]TestLogEntry, len(c.buf.logs))
	copy(out, c.buf.logs)
	return out
}

// Messages returns the formatted messages recorded at severity.
func (c *TestLogger) Messages(severity string) []string {
	var out []string
	for _, e := range c.Logs() {
		if e.Severity == severity {
			out = append(out, fmt.Sprintf(e.Message, e.Arguments...))
		}
	}
	return out
}

func (c *TestLogger) Log(level string, msg string, args ...interface{}) {
	c.buf.mu.Lock()
	c.buf.logs = append(c.buf.logs, TestLogEntry{level, msg, args})
	c.buf.mu.Unlock()
}

func (c *TestLogger) Trace(msg string, args ...interface{}) { c.Log("TRACE", msg, args...) }
func (c *TestLogger) Debug(msg string, args ...interface{}) { c.Log("DEBUG", msg, args...) }
func (c *TestLogger) Info(msg string, args ...interface{})  { c.Log("INFO", msg, args...) }
func (c *TestLogger) Warn(msg string, args ...interface{})  { c.Log("WARNING", msg, args...) }
func (c *TestLogger) Error(msg string, args ...interface{}) { c.Log("ERROR", msg, args...) }
