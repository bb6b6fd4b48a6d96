// Package logger writes the audit journal: one JSON object per line, so the
// file can be tailed, grepped or replayed with line-oriented tools.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is the severity of an entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	levelOff
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l >= levelOff {
		return "OFF"
	}
	return levelNames[l]
}

// Field is one key of an entry.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field  { return Field{Key: key, Value: value} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Time formats t as RFC 3339 in UTC.
func Time(key string, t time.Time) Field {
	return Field{Key: key, Value: t.UTC().Format(time.RFC3339)}
}

// Journal keys.
const CorrelationIDKey = "correlation_id"

func Actor(username string) Field { return String("actor", username) }
func EventType(t string) Field    { return String("event_type", t) }

// LogEntry is the JSON shape of one line.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Options configure New.
type Options struct {
	// Output defaults to os.Stdout.
	Output io.Writer
	Level  Level
	// Now defaults to time.Now.
	Now func() time.Time
}

type sink struct {
	mu  sync.Mutex
	enc *json.Encoder
	w   io.Writer
}

// Logger writes entries at or above its level. Loggers derived with With
// share the output and its lock.
type Logger struct {
	out    *sink
	level  Level
	now    func() time.Time
	fields []Field
}

func New(opts Options) *Logger {
	w := opts.Output
	if w == nil {
		w = os.Stdout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Logger{
		out:   &sink{enc: json.NewEncoder(w), w: w},
		level: opts.Level,
		now:   now,
	}
}

// OpenFile appends to path, creating it with mode 0644. Close the returned
// closer when done.
func OpenFile(path string, level Level) (*Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	return New(Options{Output: f, Level: level}), f, nil
}

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{out: l.out, level: l.level, now: l.now, fields: merged}
}

func (l *Logger) WithCorrelationID(id string) *Logger {
	return l.With(String(CorrelationIDKey, id))
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.write(LevelError, msg, fields) }

func (l *Logger) write(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	entry := LogEntry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
	}
	if n := len(l.fields) + len(fields); n > 0 {
		entry.Fields = make(map[string]any, n)
		for _, f := range l.fields {
			entry.Fields[f.Key] = f.Value
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if err := l.out.enc.Encode(entry); err != nil {
		// Unencodable field values still leave a trace of the event.
		fmt.Fprintf(l.out.w, "{\"timestamp\":%q,\"level\":%q,\"message\":%q}\n",
			entry.Timestamp, entry.Level, msg)
	}
}
