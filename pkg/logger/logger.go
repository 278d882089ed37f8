package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	std  = logrus.New()
	file *os.File
	mu   sync.Mutex
)

func init() {
	std.SetOutput(os.Stderr)
	std.SetLevel(logrus.InfoLevel)
	std.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
}

// InitLog redirects log output to the given file path, creating parent
// directories as needed. Console output is kept alongside the file.
func InitLog(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if file != nil {
		_ = file.Close()
	}
	file = f
	std.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}

// FlushLog closes the log file if one is open.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Sync()
		_ = file.Close()
		file = nil
		std.SetOutput(os.Stderr)
	}
}

// SetLevel adjusts the global log level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.InfoLevel
	}
	std.SetLevel(lv)
}

// SetOutput replaces the log destination. Used by tests to silence output.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func Debug(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	std.Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// DebugX logs with a module tag so subsystem output can be filtered.
func DebugX(module string, format string, args ...interface{}) {
	std.WithField("module", module).Debugf(format, args...)
}

func InfoX(module string, format string, args ...interface{}) {
	std.WithField("module", module).Infof(format, args...)
}

func WarnX(module string, format string, args ...interface{}) {
	std.WithField("module", module).Warnf(format, args...)
}

func ErrorX(module string, format string, args ...interface{}) {
	std.WithField("module", module).Errorf(format, args...)
}
