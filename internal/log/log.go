// Package log provides structured logging for devscripts.
// It wraps a zerolog logger with categories and stays silent until Init is called,
// so library code can log freely without configuring anything.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel maps a config string to a Level. Unknown values fall back to info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Category groups related log messages.
type Category string

const (
	CatConfig   Category = "config"   // Configuration loading/saving
	CatDispatch Category = "dispatch" // Dispatch handler and registry resolution
	CatScript   Category = "script"   // Script discovery and execution
	CatClient   Category = "client"   // Trigger client requests
	CatConsole  Category = "console"  // Interactive console
	CatHTTP     Category = "http"     // HTTP server lifecycle
	CatTrace    Category = "trace"    // Tracing provider
)

// Logger provides structured logging.
type Logger struct {
	mu       sync.Mutex
	zl       zerolog.Logger
	enabled  bool
	minLevel Level
}

var defaultLogger atomic.Pointer[Logger]

// Init initializes the global logger writing to path, or to stderr when path is empty.
// Returns a cleanup function to close the log file.
func Init(path string, app string) (func(), error) {
	if path == "" {
		InitWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}, app)
		return func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) //nolint:gosec // G304: path is user-controlled log path
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	InitWriter(f, app)
	return func() {
		SetEnabled(false)
		_ = f.Close()
	}, nil
}

// InitWriter initializes the global logger on an arbitrary writer.
func InitWriter(w io.Writer, app string) {
	defaultLogger.Store(&Logger{
		zl:       zerolog.New(w).With().Timestamp().Str("app", app).Logger(),
		enabled:  true,
		minLevel: LevelInfo,
	})
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	if l := defaultLogger.Load(); l != nil {
		l.mu.Lock()
		l.enabled = enabled
		l.mu.Unlock()
	}
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	if l := defaultLogger.Load(); l != nil {
		l.mu.Lock()
		l.minLevel = level
		l.mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	log(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	log(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	log(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	log(LevelError, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	log(LevelError, cat, msg, fields...)
}

func log(level Level, cat Category, msg string, fields ...any) {
	l := defaultLogger.Load()
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.minLevel {
		return
	}

	event := l.zl.WithLevel(level.zerolog()).Str("category", string(cat))
	for i := 0; i+1 < len(fields); i += 2 {
		event = event.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	// Odd field count: keep the orphan key visible.
	if len(fields)%2 != 0 {
		event = event.Str(fmt.Sprint(fields[len(fields)-1]), "<missing>")
	}
	event.Msg(msg)
}
