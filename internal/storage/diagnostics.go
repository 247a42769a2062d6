package storage

import (
	"log/slog"
	"sync"
)

// Diagnostics receives soft failures that never reach the caller.
type Diagnostics interface {
	Warn(op string, err error)
}

// LogDiagnostics reports soft failures as slog warnings.
type LogDiagnostics struct {
	Logger *slog.Logger
}

func (d LogDiagnostics) Warn(op string, err error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("Storage soft failure", "component", "storage", "op", op, "error", err)
}

// Warning is one recorded soft failure.
type Warning struct {
	Op  string
	Err error
}

// Recorder keeps every soft failure in memory.
type Recorder struct {
	mu       sync.Mutex
	warnings []Warning
}

func (r *Recorder) Warn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, Warning{Op: op, Err: err})
}

func (r *Recorder) Warnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Warning(nil), r.warnings...)
}

// Last returns the most recent warning, if any.
func (r *Recorder) Last() (Warning, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.warnings) == 0 {
		return Warning{}, false
	}
	return r.warnings[len(r.warnings)-1], true
}
