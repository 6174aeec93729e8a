// Package monitoring carries the shared diagnostic logger used by the numeric
// packages. Shape-validation failures log their offending shapes and types
// here before returning an error, so batch tooling keeps a concrete record of
// what was rejected without each package owning a logger.
package monitoring

import (
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Capture replaces the package logger with one that appends formatted lines
// to the returned slice pointer, and returns a restore func. Intended for
// tests asserting that a rejection was logged.
func Capture() (*[]string, func()) {
	prev := Logf
	lines := &[]string{}
	Logf = func(format string, v ...interface{}) {
		*lines = append(*lines, fmt.Sprintf(format, v...))
	}
	return lines, func() { Logf = prev }
}
