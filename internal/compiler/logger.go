package compiler

import (
	"github.com/tliron/commonlog"
)

// Logger provides verbose output for compilation decisions. Messages go to
// the process-wide commonlog backend configured by the caller.
type Logger struct {
	enabled bool
	log     commonlog.Logger
}

// NewLogger creates a new logger instance.
func NewLogger(enabled bool) *Logger {
	return &Logger{
		enabled: enabled,
		log:     commonlog.GetLogger("peepgen.compiler"),
	}
}

// Log prints a formatted message if verbose mode is enabled.
func (l *Logger) Log(format string, args ...any) {
	if l.enabled {
		l.log.Infof(format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func (l *Logger) Section(name string) {
	if l.enabled {
		l.log.Noticef("=== %s ===", name)
	}
}

// Enabled returns whether the logger is enabled.
func (l *Logger) Enabled() bool {
	return l.enabled
}
