// Package console provides the terminal logger used by the CLI.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
)

// Level orders log severities
type Level int

// Log levels, lowest first
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a level name to a Level, defaulting to info
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	levelStyles = map[Level]lipgloss.Style{
		LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
	levelNames = map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
	}
	keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// Logger writes leveled, key=value log lines. Safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
	plain bool
}

// NewLogger creates a logger writing to out. Plain loggers emit no ANSI styling.
func NewLogger(out io.Writer, level Level, plain bool) *Logger {
	return &Logger{out: out, level: level, plain: plain}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.log(LevelDebug, msg, fields)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.log(LevelInfo, msg, fields)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.log(LevelWarn, msg, fields)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.log(LevelError, msg, fields)
}

func (l *Logger) log(level Level, msg string, fields []interfaces.Field) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString(l.render(levelStyles[level], fmt.Sprintf("%-5s", levelNames[level])))
	b.WriteString(" ")
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteString(" ")
		b.WriteString(l.render(keyStyle, f.Key+"="))
		b.WriteString(formatValue(f.Value))
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

func (l *Logger) render(style lipgloss.Style, s string) string {
	if l.plain {
		return s
	}
	return style.Render(s)
}

func formatValue(v interface{}) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, " \t\n\"") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
