package process

import "errors"

var (
	// ErrStartFailed is returned when the binary could not be launched
	// (missing, not executable, fork failure).
	ErrStartFailed = errors.New("process: failed to start")

	// ErrTimeout is returned when a command exceeded its budget and was killed.
	ErrTimeout = errors.New("process: timed out")

	// ErrExited is returned when a command ran to completion with a non-zero exit code.
	ErrExited = errors.New("process: exited non-zero")
)
