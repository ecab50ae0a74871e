// Package runner isolates external process invocation behind a narrow
// interface so the version-control and orchestration collaborators can be
// replaced with fakes.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes an external command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ErrTimeout is returned when a command exceeds its per-operation timeout.
var ErrTimeout = errors.New("command timed out")

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout bounds each command. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// New creates an ExecRunner with the given per-command timeout.
func New(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes name with args. A non-zero exit status is returned as an error
// wrapping *exec.ExitError; the output is returned in every case.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	// Children that inherit the pipes must not keep Wait blocked after a kill
	cmd.WaitDelay = 5 * time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	slog.Debug("running command", "cmd", name, "args", strings.Join(args, " "), "dir", dir)
	start := time.Now()
	err := cmd.Run()
	slog.Debug("command finished", "cmd", name, "duration", time.Since(start), "error", err)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out.Bytes(), fmt.Errorf("%s %s: %w", name, firstArg(args), ErrTimeout)
		}
		if ctx.Err() != nil {
			return out.Bytes(), fmt.Errorf("%s %s: %w", name, firstArg(args), ctx.Err())
		}
		return out.Bytes(), fmt.Errorf("%s %s: %w", name, firstArg(args), err)
	}
	return out.Bytes(), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
