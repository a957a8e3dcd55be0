// Package executor runs external commands and reports their outcome.
// It is the only package that talks to the operating system.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Result holds the observable outcome of one command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Reason extracts a human-readable failure reason from captured output:
// trimmed stderr first, then trimmed stdout, then the exit code.
func (r Result) Reason() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Stdout); s != "" {
		return s
	}
	return fmt.Sprintf("exit code %d", r.ExitCode)
}

// Runner executes a named command with arguments. Implementations must be
// safe for concurrent use; the controller fans invocations out to workers.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands via os/exec, capturing stdout and stderr
// incrementally as the process writes them.
type ExecRunner struct {
	// Env entries appended to the child environment, e.g. "NO_COLOR=1".
	Env []string
}

// Run launches the command and waits for it. A non-zero exit status is not
// an error: it is reported through Result.ExitCode. The returned error is
// reserved for launch failures (binary missing, context cancelled before
// start).
func (e *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}

	var stdout, stderr lockedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("failed to launch %s: %w", name, err)
	}

	res.ExitCode = 0
	return res, nil
}

// lockedBuffer is a bytes.Buffer safe for writes from the child's pipe
// goroutines while the parent reads after Wait.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
