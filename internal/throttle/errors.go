package throttle

import "errors"

var (
	// ErrClosed is returned for tickets submitted to, or still pending in, a closed queue.
	ErrClosed = errors.New("throttle: queue closed")

	// ErrPanic wraps a panic recovered from submitted work.
	ErrPanic = errors.New("throttle: work panicked")
)
