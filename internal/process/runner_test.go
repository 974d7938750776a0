package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeScript creates an executable shell script under t.TempDir().
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil { //nolint:gosec // test script must be executable
		t.Fatalf("writing script: %v", err)
	}
	return path
}

type recordingLogger struct {
	noopLogger
	warns []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) { l.warns = append(l.warns, msg) }

func TestRunner_CapturesStdout(t *testing.T) {
	script := writeScript(t, `printf 'line0\nline1\n'; echo oops >&2`)

	res, err := NewRunner().Run(context.Background(), Command{Name: "echo", Binary: script})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if string(res.Stdout) != "line0\nline1\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "line0\nline1\n")
	}
	if strings.TrimSpace(string(res.Stderr)) != "oops" {
		t.Errorf("Stderr = %q, want oops", res.Stderr)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestRunner_PassesArgsVerbatim(t *testing.T) {
	script := writeScript(t, `for a in "$@"; do echo "$a"; done`)

	args := []string{"-m", "put", "-e", `{"3311":[{"5850":1}]}`, "coaps://10.0.0.1:5684/15001/65537"}
	res, err := NewRunner().Run(context.Background(), Command{Name: "args", Binary: script, Args: args})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := strings.Split(strings.TrimRight(string(res.Stdout), "\n"), "\n")
	if len(got) != len(args) {
		t.Fatalf("got %d args, want %d: %q", len(got), len(args), got)
	}
	for i := range args {
		if got[i] != args[i] {
			t.Errorf("arg[%d] = %q, want %q", i, got[i], args[i])
		}
	}
}

func TestRunner_NonZeroExit(t *testing.T) {
	script := writeScript(t, `echo partial; exit 3`)

	res, err := NewRunner().Run(context.Background(), Command{Name: "fail", Binary: script})
	if !errors.Is(err, ErrExited) {
		t.Fatalf("Run() error = %v, want ErrExited", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if string(res.Stdout) != "partial\n" {
		t.Errorf("Stdout = %q, want output captured despite failure", res.Stdout)
	}
}

func TestRunner_StartFailure(t *testing.T) {
	r := NewRunner()
	_, err := r.Run(context.Background(), Command{
		Name:   "missing",
		Binary: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	if !errors.Is(err, ErrStartFailed) {
		t.Fatalf("Run() error = %v, want ErrStartFailed", err)
	}
	if s := r.Stats(); s.Failures != 1 || s.Runs != 1 {
		t.Errorf("Stats = %+v, want 1 run and 1 failure", s)
	}
}

func TestRunner_TimeoutKills(t *testing.T) {
	script := writeScript(t, `echo started; sleep 30`)
	r := NewRunner()
	logger := &recordingLogger{}
	r.SetLogger(logger)

	start := time.Now()
	res, err := r.Run(context.Background(), Command{
		Name:    "hang",
		Binary:  script,
		Timeout: 200 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Run() took %v, want prompt return after kill", elapsed)
	}
	if string(res.Stdout) != "started\n" {
		t.Errorf("Stdout = %q, want output produced before the kill", res.Stdout)
	}
	if s := r.Stats(); s.Timeouts != 1 {
		t.Errorf("Stats.Timeouts = %d, want 1", s.Timeouts)
	}
	if len(logger.warns) != 1 {
		t.Errorf("logged %d warnings, want 1", len(logger.warns))
	}
}

func TestRunner_TimeoutKillsChildren(t *testing.T) {
	// The child sleep inherits stdout. Without a group kill, Wait would
	// block on the pipe until waitDelay.
	script := writeScript(t, `sleep 30 & wait`)

	start := time.Now()
	_, err := NewRunner().Run(context.Background(), Command{
		Name:    "tree",
		Binary:  script,
		Timeout: 100 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v with a lingering child", elapsed)
	}
}

func TestRunner_CallerCancel(t *testing.T) {
	script := writeScript(t, `sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := NewRunner().Run(ctx, Command{Name: "cancel", Binary: script, Timeout: 10 * time.Second})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("caller cancellation must not be reported as ErrTimeout")
	}
}

func TestRunner_Env(t *testing.T) {
	script := writeScript(t, `echo "$TRADFRI_TEST_VALUE"`)

	res, err := NewRunner().Run(context.Background(), Command{
		Name:   "env",
		Binary: script,
		Env:    []string{"TRADFRI_TEST_VALUE=hello"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "hello" {
		t.Errorf("Stdout = %q, want hello", res.Stdout)
	}
}

func TestRunner_StatsSuccess(t *testing.T) {
	r := NewRunner()
	script := writeScript(t, `true`)

	for i := 0; i < 3; i++ {
		if _, err := r.Run(context.Background(), Command{Name: "ok", Binary: script}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	s := r.Stats()
	if s.Runs != 3 {
		t.Errorf("Stats.Runs = %d, want 3", s.Runs)
	}
	if s.Failures != 0 || s.LastError != "" {
		t.Errorf("Stats = %+v, want no failures", s)
	}
}
