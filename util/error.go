// util/error.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/mmp/trajgen/log"
)

// ErrorLogger is a small utility class used to log errors when validating
// scenarios and flight plans. It tracks context about what is currently
// being validated and accumulates multiple errors, making it possible to
// report all of a scenario's problems at once.
type ErrorLogger struct {
	// Tracked via Push()/Pop() calls to remember what we're looking at if
	// an error is found.
	hierarchy []string
	// Actual error messages to report.
	errors []string
}

func (e *ErrorLogger) Push(s string) {
	e.hierarchy = append(e.hierarchy, s)
}

func (e *ErrorLogger) Pop() {
	e.hierarchy = e.hierarchy[:len(e.hierarchy)-1]
}

func (e *ErrorLogger) ErrorString(s string, args ...any) {
	e.errors = append(e.errors, e.prefix()+fmt.Sprintf(s, args...))
}

func (e *ErrorLogger) Error(err error) {
	e.errors = append(e.errors, e.prefix()+err.Error())
}

func (e *ErrorLogger) prefix() string {
	if len(e.hierarchy) == 0 {
		return ""
	}
	return strings.Join(e.hierarchy, " / ") + ": "
}

func (e *ErrorLogger) HaveErrors() bool {
	return e != nil && len(e.errors) > 0
}

func (e *ErrorLogger) Errors() []string {
	return e.errors
}

func (e *ErrorLogger) PrintErrors(lg *log.Logger) {
	// Two loops so they aren't interleaved with logging to stdout
	if lg != nil {
		for _, err := range e.errors {
			lg.Errorf("%+v", err)
		}
	}
	for _, err := range e.errors {
		fmt.Fprintln(os.Stderr, err)
	}
}

func (e *ErrorLogger) String() string {
	return strings.Join(e.errors, "\n")
}

// CheckDepth is meant to be deferred with the depth at entry to a
// validation function; it catches unbalanced Push/Pop calls.
func (e *ErrorLogger) CheckDepth(d int) {
	if e == nil || e.CurrentDepth() == d {
		return
	}

	if r := recover(); r == nil {
		// Don't give spurious warnings when there's a panic.
		fmt.Fprintf(os.Stderr, "Initial ErrorLogger depth %d, final %d\n", d, e.CurrentDepth())
		for _, f := range log.Callstack(nil) {
			fmt.Fprintf(os.Stderr, "%15s:%d %s\n", f.File, f.Line, f.Function)
		}
		panic("unbalanced ErrorLogger Push/Pop")
	} else {
		panic(r)
	}
}

func (e *ErrorLogger) CurrentDepth() int {
	if e == nil {
		return 0
	}
	return len(e.hierarchy)
}
