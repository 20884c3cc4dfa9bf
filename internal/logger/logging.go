// Package logger builds the charmbracelet/log loggers shared by simserve packages.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	loggers = map[string]*log.Logger{}
)

// New returns the prefixed logger on stderr, one per prefix. It starts at the
// global log level and follows later SetLevel calls.
// Stdout is left to the IPC stream.
func New(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[prefix]; ok {
		return l
	}
	l := NewWithWriter(os.Stderr, prefix)
	loggers[prefix] = l
	return l
}

// NewWithWriter is New with an explicit destination. The logger is not shared,
// so SetLevel does not reach it.
func NewWithWriter(w io.Writer, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// SetLevel sets the level of the default logger and of every logger made by New.
func SetLevel(level log.Level) {
	mu.Lock()
	defer mu.Unlock()
	log.SetLevel(level)
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

// ParseLevel maps a config string to a level, defaulting to warn.
func ParseLevel(s string) log.Level {
	level, err := log.ParseLevel(s)
	if err != nil {
		return log.WarnLevel
	}
	return level
}
