package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTable = []struct {
	level LogLevel
	name  string
	slog  slog.Level
}{
	{LevelDebug, "DEBUG", slog.LevelDebug},
	{LevelInfo, "INFO", slog.LevelInfo},
	{LevelWarn, "WARN", slog.LevelWarn},
	{LevelError, "ERROR", slog.LevelError},
}

func (l LogLevel) String() string {
	for _, e := range levelTable {
		if e.level == l {
			return e.name
		}
	}
	return "UNKNOWN"
}

// SlogLevel converts l; unknown values map to warn.
func (l LogLevel) SlogLevel() slog.Level {
	for _, e := range levelTable {
		if e.level == l {
			return e.slog
		}
	}
	return slog.LevelWarn
}

// ParseLevel maps a user supplied level name onto a LogLevel.
// Empty input yields LevelWarn, the CLI default.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "":
		return LevelWarn, nil
	case "WARNING":
		return LevelWarn, nil
	}
	for _, e := range levelTable {
		if e.name == name {
			return e.level, nil
		}
	}
	return LevelWarn, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", s)
}

var (
	mu     sync.RWMutex
	logger *slog.Logger
	level  = new(slog.LevelVar)
)

func init() {
	level.Set(slog.LevelWarn)
}

// InitForCLI routes records to output, usually os.Stderr, so they never
// interleave with the reporter's stdout.
func InitForCLI(filterLevel LogLevel, output io.Writer) {
	level.Set(filterLevel.SlogLevel())
	l := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))

	mu.Lock()
	logger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// SetLevel changes the filter level of an initialized logger.
func SetLevel(l LogLevel) {
	level.Set(l.SlogLevel())
}

// current returns the configured logger. Before InitForCLI, warnings and
// errors still reach stderr.
func current() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func emit(lvl LogLevel, subsystem string, err error, format string, args []interface{}) {
	l := current()
	ctx := context.Background()
	if !l.Enabled(ctx, lvl.SlogLevel()) {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.LogAttrs(ctx, lvl.SlogLevel(), msg, attrs...)
}

func Debug(subsystem string, format string, args ...interface{}) {
	emit(LevelDebug, subsystem, nil, format, args)
}

func Info(subsystem string, format string, args ...interface{}) {
	emit(LevelInfo, subsystem, nil, format, args)
}

func Warn(subsystem string, format string, args ...interface{}) {
	emit(LevelWarn, subsystem, nil, format, args)
}

// Error logs msg with err attached as the "error" attribute.
func Error(subsystem string, err error, format string, args ...interface{}) {
	emit(LevelError, subsystem, err, format, args)
}
