package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// simpleLogger is a minimal structured logger with JSON or text
// output, modeled on the teacher's SimpleLogger but field-map based
// to match core.Logger's signature rather than variadic key-values.
type simpleLogger struct {
	level  Level
	format string // "json" | "text"
	fields map[string]interface{}
	out    *log.Logger
}

// New builds a Logger, reading LOG_LEVEL and LOG_FORMAT from the
// environment the way the teacher's GetLogLevel() does.
func New() Logger {
	return &simpleLogger{
		level:  levelFromEnv(),
		format: formatFromEnv(),
		fields: map[string]interface{}{},
		out:    log.New(os.Stderr, "", 0),
	}
}

func levelFromEnv() Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func formatFromEnv() string {
	f := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if f == "json" {
		return "json"
	}
	return "text"
}

func (l *simpleLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(DebugLevel, msg, fields)
}
func (l *simpleLogger) Info(msg string, fields map[string]interface{}) {
	l.log(InfoLevel, msg, fields)
}
func (l *simpleLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(WarnLevel, msg, fields)
}
func (l *simpleLogger) Error(msg string, fields map[string]interface{}) {
	l.log(ErrorLevel, msg, fields)
}

func (l *simpleLogger) With(extra map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &simpleLogger{level: l.level, format: l.format, fields: merged, out: l.out}
}

func (l *simpleLogger) log(level Level, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}
	merged := make(map[string]interface{}, len(l.fields)+len(fields)+2)
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	if l.format == "json" {
		merged["level"] = level.String()
		merged["msg"] = msg
		merged["time"] = time.Now().UTC().Format(time.RFC3339Nano)
		b, err := json.Marshal(merged)
		if err != nil {
			l.out.Printf("[%s] %s (field marshal error: %v)", level, msg, err)
			return
		}
		l.out.Println(string(b))
		return
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+2)
	parts = append(parts, fmt.Sprintf("[%s]", level))
	parts = append(parts, msg)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, merged[k]))
	}
	l.out.Println(strings.Join(parts, " "))
}
