package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// JSONLogEntry defines a log entry
type JSONLogEntry struct {
	Timestamp time.Time              `json:"timestamp,omitempty"`
	Message   string                 `json:"message"`
	Severity  string                 `json:"severity,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Component string                 `json:"component,omitempty"`
}

// String renders the entry as a single JSON line.
func (e JSONLogEntry) String() string {
	if e.Severity == "" {
		e.Severity = "INFO"
	}
	out, err := json.Marshal(e)
	if err != nil {
		log.Printf("json.Marshal: %v", err)
	}
	return string(out)
}

var severities = map[LogLevel]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
}

type jsonLogger struct {
	metadata     map[string]interface{}
	component    string
	sink         Sink
	sinkLogLevel LogLevel
	noConsole    bool
	ts           *time.Time // for unit testing
	logLevel     LogLevel
}

var _ SinkLogger = (*jsonLogger)(nil)

func (c *jsonLogger) clone() *jsonLogger {
	return &jsonLogger{
		metadata:     copyMetadata(c.metadata, nil),
		component:    c.component,
		sink:         c.sink,
		sinkLogLevel: c.sinkLogLevel,
		noConsole:    c.noConsole,
		ts:           c.ts,
		logLevel:     c.logLevel,
	}
}

func (c *jsonLogger) SetSink(sink Sink, level LogLevel) {
	c.sink = sink
	c.sinkLogLevel = level
}

// WithPrefix appends prefix to the component field.
func (c *jsonLogger) WithPrefix(prefix string) Logger {
	l := c.clone()
	prefix = strings.Trim(prefix, "[]")
	switch {
	case l.component == "":
		l.component = prefix
	case !strings.Contains(l.component, prefix):
		l.component += " " + prefix
	}
	return l
}

func (c *jsonLogger) With(metadata map[string]interface{}) Logger {
	l := c.clone()
	l.metadata = copyMetadata(c.metadata, metadata)
	if comp, ok := l.metadata["component"].(string); ok {
		l.component = comp
		delete(l.metadata, "component")
	}
	return l
}

func (c *jsonLogger) IsLevelEnabled(level LogLevel) bool {
	return (!c.noConsole && level >= c.logLevel) || (c.sink != nil && level >= c.sinkLogLevel)
}

func (c *jsonLogger) log(level LogLevel, msg string, args ...interface{}) {
	if !c.IsLevelEnabled(level) {
		return
	}
	_msg := msg
	if len(args) > 0 {
		_msg = fmt.Sprintf(msg, args...)
	}
	entry := JSONLogEntry{
		Severity:  severities[level],
		Message:   _msg,
		Metadata:  c.metadata,
		Component: c.component,
		Timestamp: time.Now(),
	}
	if c.ts != nil {
		entry.Timestamp = *c.ts
	}
	if !c.noConsole && level >= c.logLevel {
		log.Println(entry)
	}
	if c.sink != nil && level >= c.sinkLogLevel {
		entry.Message = ansiColorStripper.ReplaceAllString(entry.Message, "")
		buf, _ := json.Marshal(entry)
		if _, err := c.sink.Write(append(buf, '\n')); err != nil {
			log.Printf("sink.Write: %v", err)
		}
	}
}

func (c *jsonLogger) Trace(msg string, args ...interface{}) { c.log(LevelTrace, msg, args...) }
func (c *jsonLogger) Debug(msg string, args ...interface{}) { c.log(LevelDebug, msg, args...) }
func (c *jsonLogger) Info(msg string, args ...interface{})  { c.log(LevelInfo, msg, args...) }
func (c *jsonLogger) Warn(msg string, args ...interface{})  { c.log(LevelWarn, msg, args...) }
func (c *jsonLogger) Error(msg string, args ...interface{}) { c.log(LevelError, msg, args...) }

// NewJSONLogger returns a new Logger instance which can be used for structured logging
func NewJSONLogger(levels ...LogLevel) SinkLogger {
	level := GetLevelFromEnv()
	if len(levels) > 0 {
		level = levels[0]
	}
	return &jsonLogger{logLevel: level, sinkLogLevel: LevelNone}
}

// NewJSONLoggerWithSink returns a new Logger instance using a sink and suppressing the console logging
func NewJSONLoggerWithSink(sink Sink, level LogLevel) SinkLogger {
	return &jsonLogger{noConsole: true, sink: sink, sinkLogLevel: level, logLevel: LevelNone}
}
