// Package report carries the logging capability handed to every component.
package report

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Reporter is the logging surface used across the engine.
// *log.Logger from charmbracelet/log satisfies it.
type Reporter interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

// New creates a reporter writing to w. Verbose enables debug output.
func New(w io.Writer, prefix string, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportTimestamp: verbose,
	})
}

type nop struct{}

func (nop) Debug(interface{}, ...interface{}) {}
func (nop) Info(interface{}, ...interface{})  {}
func (nop) Warn(interface{}, ...interface{})  {}
func (nop) Error(interface{}, ...interface{}) {}

// Nop returns a reporter that discards everything
func Nop() Reporter {
	return nop{}
}

// Elapsed logs how long a phase took since start
func Elapsed(r Reporter, phase string, start time.Time) {
	r.Info(phase, "elapsed", time.Since(start).Round(time.Millisecond))
}

// Once forwards a warning the first time its key is seen and drops repeats.
type Once struct {
	r    Reporter
	mu   sync.Mutex
	seen map[string]bool
}

// NewOnce creates a deduplicating reporter on top of r
func NewOnce(r Reporter) *Once {
	return &Once{r: r, seen: make(map[string]bool)}
}

// Warn reports msg unless key has already been reported.
// It returns true when the message was emitted.
func (o *Once) Warn(key string, msg interface{}, keyvals ...interface{}) bool {
	o.mu.Lock()
	if o.seen[key] {
		o.mu.Unlock()
		return false
	}
	o.seen[key] = true
	o.mu.Unlock()

	o.r.Warn(msg, keyvals...)
	return true
}

// Keys returns every key reported so far
func (o *Once) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(o.seen))
	for k := range o.seen {
		keys = append(keys, k)
	}
	return keys
}
