package runner

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func skipIfNoShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available, skipping test")
	}
}

func TestExecRunner_Output(t *testing.T) {
	skipIfNoShell(t)

	r := New(10 * time.Second)
	out, err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo out; echo err 1>&2")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(string(out), "out") || !strings.Contains(string(out), "err") {
		t.Errorf("expected combined stdout and stderr, got %q", out)
	}
}

func TestExecRunner_ExitError(t *testing.T) {
	skipIfNoShell(t)

	r := New(10 * time.Second)
	out, err := r.Run(context.Background(), "", "sh", "-c", "echo diagnostics; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("expected exit code 3, got %v", err)
	}
	if !strings.Contains(string(out), "diagnostics") {
		t.Errorf("expected output to be captured on failure, got %q", out)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	skipIfNoShell(t)

	r := New(100 * time.Millisecond)
	start := time.Now()
	_, err := r.Run(context.Background(), "", "sh", "-c", "exec sleep 5")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("timeout did not cancel the command promptly")
	}
}

func TestExecRunner_Cancelled(t *testing.T) {
	skipIfNoShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(0).Run(ctx, "", "sh", "-c", "exec sleep 5")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
