// Package log provides the logging backend shared by the client and the
// relay, built on go-logging.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/op/go-logging.v1"
)

const logFormat = "%{time:15:04:05.000} %{level:.4s} %{module}: %{message}"

// Backend is a leveled log backend that hands out per-module loggers.
type Backend struct {
	logging.LeveledBackend

	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// New opens a backend writing to file (stderr when empty) at level. With
// disable set every record is dropped.
func New(file, level string, disable bool) (*Backend, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	b := new(Backend)
	switch {
	case disable:
		b.w = io.Discard
	case file == "":
		b.w = os.Stderr
	default:
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("log: open %s: %w", file, err)
		}
		b.w, b.c = f, f
	}
	b.LeveledBackend = newLeveled(b.w, lvl)
	return b, nil
}

// NewWriter returns a backend writing to w at level. Used by tests and by
// callers that already own an output stream.
func NewWriter(w io.Writer, level string) (*Backend, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return &Backend{LeveledBackend: newLeveled(w, lvl), w: w}, nil
}

// Discard returns a backend that drops every record.
func Discard() *Backend {
	return &Backend{LeveledBackend: newLeveled(io.Discard, logging.CRITICAL), w: io.Discard}
}

func newLeveled(w io.Writer, lvl logging.Level) logging.LeveledBackend {
	formatted := logging.NewBackendFormatter(
		logging.NewLogBackend(w, "", 0),
		logging.MustStringFormatter(logFormat),
	)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")
	return leveled
}

// GetLogger returns a per-module logger that writes to the backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b.LeveledBackend)
	return l
}

// Close releases the log file, if any.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.c == nil {
		return nil
	}
	err := b.c.Close()
	b.c = nil
	return err
}

// ParseLevel maps a level name to a go-logging level.
func ParseLevel(l string) (logging.Level, error) {
	switch strings.ToUpper(l) {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING", "WARN":
		return logging.WARNING, nil
	case "NOTICE", "":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.CRITICAL, fmt.Errorf("log: invalid level: '%v'", l)
	}
}
