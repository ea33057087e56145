package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{Debug: "debug", Info: "info", Warn: "warn", Error: "error"}
var nameToLevel = map[string]Level{"debug": Debug, "info": Info, "warn": Warn, "error": Error}

// ParseLevel maps a level name to a Level, falling back to Info.
func ParseLevel(name string) Level {
	if l, ok := nameToLevel[strings.ToLower(strings.TrimSpace(name))]; ok {
		return l
	}
	return Info
}

// Logger writes one JSON object per line.
type Logger struct {
	out    io.Writer
	level  Level
	fields map[string]string
	mu     *sync.Mutex
}

// New creates a stderr logger. DOCQA_LOG_LEVEL overrides the given level.
func New(level string) *Logger {
	lvl := ParseLevel(level)
	if v := os.Getenv("DOCQA_LOG_LEVEL"); v != "" {
		lvl = ParseLevel(v)
	}
	return NewWithWriter(os.Stderr, lvl)
}

func NewWithWriter(out io.Writer, level Level) *Logger {
	return &Logger{out: out, level: level, fields: make(map[string]string), mu: &sync.Mutex{}}
}

// Nop discards everything.
func Nop() *Logger { return NewWithWriter(io.Discard, Error+1) }

// With returns a child logger carrying extra fields. Children share the parent's writer lock.
func (l *Logger) With(kv map[string]string) *Logger {
	child := &Logger{out: l.out, level: l.level, fields: make(map[string]string), mu: l.mu}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range kv {
		child.fields[k] = v
	}
	return child
}

// Writer exposes the underlying writer, e.g. for HTTP access logs.
func (l *Logger) Writer() io.Writer { return l.out }

func (l *Logger) write(level Level, msg string, kv map[string]any) {
	if level < l.level {
		return
	}
	rec := make(map[string]any, 3+len(l.fields)+len(kv))
	rec["ts"] = time.Now().Format(time.RFC3339)
	rec["level"] = levelNames[level]
	rec["msg"] = msg
	for k, v := range l.fields {
		rec[k] = v
	}
	for k, v := range kv {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		rec[k] = v
	}
	maskSecrets(rec)
	l.mu.Lock()
	defer l.mu.Unlock()
	b, _ := json.Marshal(rec)
	_, _ = l.out.Write(append(b, '\n'))
}

func (l *Logger) Debug(msg string, kv ...any) { l.write(Debug, msg, toMap(kv...)) }
func (l *Logger) Info(msg string, kv ...any)  { l.write(Info, msg, toMap(kv...)) }
func (l *Logger) Warn(msg string, kv ...any)  { l.write(Warn, msg, toMap(kv...)) }
func (l *Logger) Error(msg string, kv ...any) { l.write(Error, msg, toMap(kv...)) }

func toMap(kv ...any) map[string]any {
	m := make(map[string]any)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[k] = kv[i+1]
	}
	return m
}

var secretKeys = []string{"key", "token", "secret", "password", "authorization", "bearer"}

// Provider key shapes: OpenAI/Groq "sk-"/"gsk_", Google "AIza", Pinecone "pcsk_".
var secretPrefix = regexp.MustCompile(`^(sk-|gsk_|AIza|pcsk_)`)

// maskSecrets redacts likely secret values in-place.
func maskSecrets(m map[string]any) {
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		lowerK := strings.ToLower(k)
		masked := false
		for _, p := range secretKeys {
			if strings.Contains(lowerK, p) {
				m[k] = redact(s)
				masked = true
				break
			}
		}
		if masked {
			continue
		}
		if strings.HasPrefix(strings.ToLower(s), "bearer ") {
			m[k] = "Bearer " + redact(s[len("bearer "):])
			continue
		}
		if secretPrefix.MatchString(s) {
			m[k] = redact(s)
		}
	}
}

func redact(s string) string {
	n := len(s)
	if n <= 8 {
		return "***"
	}
	return fmt.Sprintf("%s***%s", s[:4], s[n-4:])
}
