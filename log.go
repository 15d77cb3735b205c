package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// LogLevel orders diagnostic messages; a Logger drops anything below its
// minimum level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelTrace
	LevelWarn
	LevelError
	LevelFatal
)

var logLevelNames = [...]string{"DEBUG", "INFO", "TRACE", "WARN", "ERROR", "FATAL"}

// ANSI colours per level.
var logLevelColors = [...]int{34, 32, 37, 33, 31, 35}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelFatal {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return logLevelNames[l]
}

// ParseLogLevel accepts level names in any case.
func ParseLogLevel(s string) (LogLevel, error) {
	for i, name := range logLevelNames {
		if strings.EqualFold(s, name) {
			return LogLevel(i), nil
		}
	}
	return LevelWarn, fmt.Errorf("unknown log level %q", s)
}

// Logger writes leveled diagnostics. It never influences what the backend
// computes. A nil *Logger discards everything.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level LogLevel
	color bool
}

func NewLogger(out io.Writer, level LogLevel, color bool) *Logger {
	return &Logger{out: out, level: level, color: color}
}

// NewStderrLogger logs to stderr, colouring output according to mode
// ("auto" colours only when stderr is a terminal).
func NewStderrLogger(level LogLevel, mode ColorMode) *Logger {
	color := false
	switch mode {
	case ColorAlways:
		color = true
	case ColorAuto:
		color = isTerminal(os.Stderr.Fd())
	}
	return NewLogger(os.Stderr, level, color)
}

func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Trace(format string, args ...any) { l.log(LevelTrace, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }
func (l *Logger) Fatal(format string, args ...any) { l.log(LevelFatal, format, args...) }

func (l *Logger) log(level LogLevel, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}

	var sb strings.Builder
	// Warnings and errors are for users, so they skip the source position.
	if level != LevelWarn && level != LevelError {
		if _, file, line, ok := runtime.Caller(2); ok {
			if l.color {
				sb.WriteString("\033[30;1m")
			}
			fmt.Fprintf(&sb, "(%s:%d) ", filepath.Base(file), line)
		}
	}
	if l.color {
		fmt.Fprintf(&sb, "\033[%d;1m%s: \033[0;0m", logLevelColors[level], level)
	} else {
		fmt.Fprintf(&sb, "%s: ", level)
	}
	fmt.Fprintf(&sb, format, args...)
	sb.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, sb.String())
}
