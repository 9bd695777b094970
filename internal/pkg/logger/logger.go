package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel converts a config string ("debug", "INFO", ...) to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return l
		}
	}
	return INFO
}

// Logger provides structured JSON logging with optional secret redaction.
type Logger struct {
	level         Level
	mu            sync.Mutex
	out           io.Writer
	redactSecrets bool
}

var defaultLogger = &Logger{level: INFO, out: os.Stderr, redactSecrets: true}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { defaultLogger.level = l }

// SetRedactSecrets enables or disables credential redaction for the default logger.
func SetRedactSecrets(r bool) { defaultLogger.redactSecrets = r }

// SetOutput redirects the default logger. Tests use it to capture entries.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defaultLogger.out = w
	defaultLogger.mu.Unlock()
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}

	// Parse key-value pairs from fields
	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		if l.redactSecrets && isSecretKey(key) {
			val = RedactSecret(val)
		}
		entry[key] = val
	}

	data, _ := json.Marshal(entry)
	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}

var secretKeyMarkers = []string{"token", "secret", "password", "api_key", "apikey", "sid", "authorization"}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, m := range secretKeyMarkers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}
