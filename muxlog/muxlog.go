// Package muxlog is the Mux's ambient logger, mirroring the shape the
// teacher's device.Logger takes: a small struct of function fields
// (Verbosef/Errorf) rather than an interface, so call sites read exactly
// like device/daita.go's `peer.device.log.Verbosef(...)` and
// `daita.logger.Errorf(...)`. Built on the standard library's log.Logger,
// matching the teacher's own choice of no third-party logging framework.
package muxlog

import (
	"log"
	"os"
)

// Logger holds the two log levels the Mux's components call: verbose
// diagnostic chatter (replicator state transitions, dispatch decisions) and
// errors worth an operator's attention.
type Logger struct {
	Verbosef func(format string, args ...interface{})
	Errorf   func(format string, args ...interface{})
}

// New builds a Logger that writes verbose lines to stdout and errors to
// stderr, both tagged with prefix.
func New(prefix string) *Logger {
	v := log.New(os.Stdout, prefix, log.Ldate|log.Ltime|log.Lmicroseconds)
	e := log.New(os.Stderr, prefix, log.Ldate|log.Ltime|log.Lmicroseconds)
	return &Logger{
		Verbosef: func(format string, args ...interface{}) { v.Printf(format, args...) },
		Errorf:   func(format string, args ...interface{}) { e.Printf(format, args...) },
	}
}

// Discard silences both levels, for tests and benchmarks that do not want
// log output on the critical path.
func Discard() *Logger {
	noop := func(string, ...interface{}) {}
	return &Logger{Verbosef: noop, Errorf: noop}
}
