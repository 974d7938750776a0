package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout is the execution budget applied when Command.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// waitDelay bounds how long Wait may block on output pipes after the
// process group has been killed.
const waitDelay = 500 * time.Millisecond

// Command describes a single short-lived invocation.
type Command struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	// WARNING: May contain secrets. Args are never logged.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// Timeout is the hard budget for the whole invocation. When it expires
	// the process group is sent SIGKILL with no graceful attempt.
	Timeout time.Duration
}

// Result is the captured outcome of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Stats contains cumulative runner statistics.
type Stats struct {
	Runs         uint64        `json:"runs"`
	Failures     uint64        `json:"failures"`
	Timeouts     uint64        `json:"timeouts"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
}

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Runner executes short-lived external commands under a hard timeout.
//
// Each command runs in its own process group so a timeout kills the
// binary together with anything it spawned.
type Runner struct {
	logger Logger

	mu    sync.Mutex
	stats Stats
}

// NewRunner creates a Runner with a no-op logger.
func NewRunner() *Runner {
	return &Runner{logger: noopLogger{}}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// Run starts cmd, waits for it to finish and returns its captured output.
//
// Errors:
//   - ErrStartFailed if the binary could not be started
//   - ErrTimeout if cmd.Timeout expired; the process group was killed
//   - ErrExited if the process exited non-zero; the Result is still populated
//   - the caller's context error if ctx was cancelled first
func (r *Runner) Run(ctx context.Context, cmd Command) (Result, error) {
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, cmd.Binary, cmd.Args...) //nolint:gosec // Binary comes from validated config

	// Own process group so the kill reaches children too
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return killGroup(c.Process.Pid)
	}
	c.WaitDelay = waitDelay

	if cmd.Env != nil {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	if err := c.Start(); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrStartFailed, cmd.Name, err)
		r.record(0, err, false)
		r.logger.Error("command failed to start", "name", cmd.Name, "error", err)
		return Result{ExitCode: -1}, err
	}

	r.logger.Debug("command started", "name", cmd.Name, "pid", c.Process.Pid)

	waitErr := c.Wait()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	switch {
	case waitErr == nil:
		r.record(res.Duration, nil, false)
		r.logger.Debug("command finished",
			"name", cmd.Name,
			"duration", res.Duration,
			"stdout_bytes", len(res.Stdout),
		)
		return res, nil

	case ctx.Err() != nil:
		// Caller gave up; not a timeout of the command itself.
		err := fmt.Errorf("running %s: %w", cmd.Name, ctx.Err())
		r.record(res.Duration, err, false)
		return res, err

	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		err := fmt.Errorf("%w: %s after %s", ErrTimeout, cmd.Name, timeout)
		r.record(res.Duration, err, true)
		r.logger.Warn("command timed out, process group killed",
			"name", cmd.Name,
			"timeout", timeout,
		)
		return res, err
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		err := fmt.Errorf("%w: %s exited with code %d", ErrExited, cmd.Name, res.ExitCode)
		r.record(res.Duration, err, false)
		r.logger.Debug("command exited non-zero",
			"name", cmd.Name,
			"exit_code", res.ExitCode,
			"stderr", string(res.Stderr),
		)
		return res, err
	}

	err := fmt.Errorf("waiting for %s: %w", cmd.Name, waitErr)
	r.record(res.Duration, err, false)
	return res, err
}

// Stats returns a snapshot of cumulative runner statistics.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Runner) record(d time.Duration, err error, timedOut bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Runs++
	r.stats.LastDuration = d
	if err != nil {
		r.stats.Failures++
		r.stats.LastError = err.Error()
	} else {
		r.stats.LastError = ""
	}
	if timedOut {
		r.stats.Timeouts++
	}
}

// killGroup sends SIGKILL to every process in the group led by pid.
func killGroup(pid int) error {
	// Negative PID signals the process group created via Setpgid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing process group %d: %w", pid, err)
	}
	return nil
}
