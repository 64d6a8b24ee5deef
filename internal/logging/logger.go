// Package logging builds the zap loggers used across logview.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI color codes
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red          = "\033[31m"
	Gray         = "\033[90m"
	BrightRed    = "\033[91m"
	BrightGreen  = "\033[92m"
	BrightYellow = "\033[93m"
	BrightBlue   = "\033[94m"
	BrightCyan   = "\033[96m"
	BrightWhite  = "\033[97m"
)

// Component tags a logger with the part of the system it belongs to.
type Component string

const (
	ComponentViewer Component = "VIEWER"
	ComponentStream Component = "STREAM"
	ComponentServer Component = "SERVER"
	ComponentWatch  Component = "WATCH"
)

func componentColor(component Component) string {
	switch component {
	case ComponentViewer:
		return BrightBlue
	case ComponentStream:
		return BrightCyan
	case ComponentServer:
		return BrightGreen
	case ComponentWatch:
		return BrightYellow
	default:
		return BrightWhite
	}
}

func levelColor(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return Gray
	case zapcore.InfoLevel:
		return BrightWhite
	case zapcore.WarnLevel:
		return BrightYellow
	case zapcore.ErrorLevel:
		return BrightRed
	default:
		return Red
	}
}

var levelLetters = map[zapcore.Level]string{
	zapcore.DebugLevel: "D",
	zapcore.InfoLevel:  "I",
	zapcore.WarnLevel:  "W",
	zapcore.ErrorLevel: "E",
}

func consoleEncoder(enableColors bool) zapcore.Encoder {
	config := zap.NewDevelopmentEncoderConfig()

	config.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		ts := t.Format("15:04:05")
		if enableColors {
			ts = Dim + ts + Reset
		}
		enc.AppendString(ts)
	}

	config.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		letter := levelLetters[level]
		if letter == "" {
			letter = "?"
		}
		if enableColors {
			letter = levelColor(level) + Bold + letter + Reset
		}
		enc.AppendString(letter)
	}

	config.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		file := strings.TrimSuffix(filepath.Base(caller.File), ".go")
		if enableColors {
			file = Dim + file + Reset
		}
		enc.AppendString(file)
	}

	config.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		tag := "[" + name + "]"
		if enableColors {
			tag = componentColor(Component(name)) + tag + Reset
		}
		enc.AppendString(tag)
	}

	return zapcore.NewConsoleEncoder(config)
}

// New creates a console logger writing to w.
func New(w io.Writer, enableColors bool, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(consoleEncoder(enableColors), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller())
}

// NewConsole creates a colored logger on stdout.
func NewConsole(level zapcore.Level) *zap.Logger {
	return New(os.Stdout, true, level)
}

// NewFile creates a logger that appends uncolored output to path, creating
// parent directories as needed. The returned close func syncs and closes the
// file.
func NewFile(path string, level zapcore.Level) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	logger := New(file, false, level)
	closeFn := func() error {
		_ = logger.Sync()
		return file.Close()
	}
	return logger, closeFn, nil
}

// For returns a child logger named after component, or a no-op logger when
// base is nil.
func For(base *zap.Logger, component Component) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(string(component))
}
