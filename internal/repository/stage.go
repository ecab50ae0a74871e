package repository

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"

	"github.com/spachava753/ctictl/internal/models"
)

// Stage copies a connector's checkout into the connectors directory so the
// aggregator has a single scan root. Version-control metadata and paths
// ignored by the checkout's .gitignore are left out. An existing staged copy
// is replaced wholesale.
func (s *Syncer) Stage(comp models.ComponentDescriptor) error {
	src := s.CheckoutPath(comp.ID)
	dst := s.StagedPath(comp.ID)

	if !s.Present(comp.ID) {
		return fmt.Errorf("no checkout at %s", src)
	}

	matcher, err := s.ignoreMatcher(src)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(s.connectorsPath, 0755); err != nil {
		return fmt.Errorf("creating connectors path: %w", err)
	}

	// The staged copy mirrors the checkout, so stale files are dropped first
	if err := s.fs.RemoveAll(dst); err != nil {
		return fmt.Errorf("removing previous staged copy: %w", err)
	}

	copied, err := s.copyTree(src, dst, matcher)
	if err != nil {
		if rmErr := s.fs.RemoveAll(dst); rmErr != nil {
			slog.Warn("removing partial staged copy", "component", comp.ID, "path", dst, "error", rmErr)
		}
		return fmt.Errorf("copying %s: %w", src, err)
	}

	slog.Debug("connector staged", "component", comp.ID, "path", dst, "files", copied)
	return nil
}

// Unstage removes a connector's staged copy so it no longer takes part in
// merges. The checkout is kept. Unstaging a component that was never staged
// is not an error.
func (s *Syncer) Unstage(comp models.ComponentDescriptor) error {
	if !comp.IsConnector() {
		return nil
	}
	dst := s.StagedPath(comp.ID)
	if err := s.fs.RemoveAll(dst); err != nil {
		return models.NewError(models.ErrStage, comp.ID, fmt.Errorf("removing staged copy: %w", err))
	}
	slog.Debug("connector unstaged", "component", comp.ID, "path", dst)
	return nil
}

// ignoreMatcher compiles the checkout's top-level .gitignore, if any.
func (s *Syncer) ignoreMatcher(src string) (*ignore.GitIgnore, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(src, ".gitignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading .gitignore: %w", err)
	}
	return ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...), nil
}

func excluded(matcher *ignore.GitIgnore, rel string, isDir bool) bool {
	if filepath.Base(rel) == ".git" {
		return true
	}
	if matcher == nil {
		return false
	}
	slashed := filepath.ToSlash(rel)
	if matcher.MatchesPath(slashed) {
		return true
	}
	return isDir && matcher.MatchesPath(slashed+"/")
}

// copyTree copies regular files and directories from src to dst and returns
// the number of files written.
func (s *Syncer) copyTree(src, dst string, matcher *ignore.GitIgnore) (int, error) {
	copied := 0
	err := afero.Walk(s.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if rel == "." {
			return s.fs.MkdirAll(target, 0755)
		}

		if excluded(matcher, rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case info.IsDir():
			return s.fs.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode().IsRegular():
			copied++
			return s.copyFile(path, target, info.Mode().Perm())
		default:
			slog.Debug("skipping non-regular file during staging", "path", path)
			return nil
		}
	})
	return copied, err
}

func (s *Syncer) copyFile(src, dst string, perm os.FileMode) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := s.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
