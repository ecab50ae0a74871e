package repository

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/spachava753/ctictl/internal/models"
	"github.com/spachava753/ctictl/internal/runner"
)

// maxOutputLines bounds how much collaborator output is kept in a report entry.
const maxOutputLines = 20

// Options configures a Syncer.
type Options struct {
	Fs             afero.Fs
	Runner         runner.Runner
	GitBin         string
	InstallPath    string
	ConnectorsPath string
	Concurrency    int
}

// Syncer materializes local checkouts of catalog components.
type Syncer struct {
	fs             afero.Fs
	runner         runner.Runner
	gitBin         string
	installPath    string
	connectorsPath string
	concurrency    int
}

// NewSyncer creates a new Syncer.
func NewSyncer(opts Options) *Syncer {
	s := &Syncer{
		fs:             opts.Fs,
		runner:         opts.Runner,
		gitBin:         opts.GitBin,
		installPath:    opts.InstallPath,
		connectorsPath: opts.ConnectorsPath,
		concurrency:    opts.Concurrency,
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.gitBin == "" {
		s.gitBin = "git"
	}
	if s.concurrency <= 0 {
		s.concurrency = 1
	}
	return s
}

// CheckoutPath returns where the component's checkout lives.
func (s *Syncer) CheckoutPath(id string) string {
	return filepath.Join(s.installPath, id)
}

// StagedPath returns where a connector's staged copy lives.
func (s *Syncer) StagedPath(id string) string {
	return filepath.Join(s.connectorsPath, id)
}

// Present reports whether a checkout directory exists for the component.
// Existence is the only signal; branch and revision are not verified.
func (s *Syncer) Present(id string) bool {
	ok, err := afero.DirExists(s.fs, s.CheckoutPath(id))
	return err == nil && ok
}

// EnsureCloned clones the component's pinned branch unless a checkout
// directory already exists, in which case it does nothing.
func (s *Syncer) EnsureCloned(ctx context.Context, comp models.ComponentDescriptor) (result models.ComponentResult) {
	start := time.Now()
	path := s.CheckoutPath(comp.ID)
	result = models.ComponentResult{
		Component: comp.ID,
		Operation: models.OpClone,
		Path:      path,
	}
	defer func() {
		result.DurationSec = time.Since(start).Seconds()
	}()

	if s.Present(comp.ID) {
		slog.Debug("repository already cloned", "component", comp.ID, "path", path)
		result.Status = models.StatusPresent
		return result
	}

	if err := s.fs.MkdirAll(s.installPath, 0755); err != nil {
		return fail(result, models.NewError(models.ErrClone, comp.ID, fmt.Errorf("creating install path: %w", err)))
	}

	slog.Info("cloning repository", "component", comp.ID, "url", comp.SourceURL, "branch", comp.Branch)
	out, err := s.runner.Run(ctx, s.installPath, s.gitBin,
		"clone", "--branch", comp.Branch, "--single-branch", comp.SourceURL, path)
	if err != nil {
		// A failed clone must not leave a directory that reads as present
		if rmErr := s.fs.RemoveAll(path); rmErr != nil {
			slog.Warn("removing partial clone", "component", comp.ID, "error", rmErr)
		}
		cloneErr := models.NewError(models.ErrClone, comp.ID, err)
		cloneErr.Output = tail(out, maxOutputLines)
		return fail(result, cloneErr)
	}

	slog.Info("repository cloned", "component", comp.ID, "path", path)
	result.Status = models.StatusCloned
	return result
}

// Update fast-forwards an existing checkout from its upstream.
func (s *Syncer) Update(ctx context.Context, comp models.ComponentDescriptor) (result models.ComponentResult) {
	start := time.Now()
	path := s.CheckoutPath(comp.ID)
	result = models.ComponentResult{
		Component: comp.ID,
		Operation: models.OpUpdate,
		Path:      path,
	}
	defer func() {
		result.DurationSec = time.Since(start).Seconds()
	}()

	if !s.Present(comp.ID) {
		return fail(result, models.Errorf(models.ErrUpdate, comp.ID, "no checkout at %s", path))
	}

	slog.Info("updating repository", "component", comp.ID, "path", path)
	out, err := s.runner.Run(ctx, path, s.gitBin, "pull", "--ff-only")
	if err != nil {
		updateErr := models.NewError(models.ErrUpdate, comp.ID, err)
		updateErr.Output = tail(out, maxOutputLines)
		return fail(result, updateErr)
	}

	slog.Info("repository updated", "component", comp.ID)
	result.Status = models.StatusUpdated
	return result
}

func fail(result models.ComponentResult, err *models.Error) models.ComponentResult {
	result.Status = models.StatusFailed
	msg := err.Error()
	result.Error = &models.ComponentError{Type: err.Type, Message: msg}
	slog.Error("component synchronization failed", "component", result.Component, "operation", result.Operation, "error", msg)
	return result
}

// tail returns the last n lines of out.
func tail(out []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
