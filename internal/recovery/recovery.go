// internal/recovery/recovery.go
// Package recovery turns panics in main and worker goroutines into a logged
// fatal error and a non-zero exit code.
package recovery

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

// ExitCode is the process exit code after a recovered panic
const ExitCode = 1

var (
	// output receives the panic report
	output io.Writer = os.Stderr
	// exit terminates the process
	exit = os.Exit
)

// HandlePanic should be deferred at the top of main().
// It reports the panic with its stack trace and exits.
func HandlePanic() {
	if r := recover(); r != nil {
		fatal(r, nil)
	}
}

// HandlePanicFunc should be deferred at the top of goroutines that own a
// resource. cleanup runs after the report and before the exit, so a capture
// device or file can be released.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		fatal(r, cleanup)
	}
}

func fatal(r any, cleanup func()) {
	_, _ = fmt.Fprintf(output, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
	if cleanup != nil {
		cleanup()
	}
	exit(ExitCode)
}
