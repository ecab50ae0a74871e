package repository

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/spachava753/ctictl/internal/models"
	"github.com/spachava753/ctictl/internal/runner"
)

// initUpstream creates a local git repository with a single commit on master.
func initUpstream(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "upstream")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"docker-compose.yml": "services:\n  connector:\n    image: opencti/connector-mitre\n",
		".gitignore":         "*.log\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	git("init", "-q", "-b", "master")
	git("add", ".")
	git("commit", "-q", "-m", "initial")
	return dir
}

// TestCloneIntegration runs the real git binary against a local upstream.
// Skipped with -short.
func TestCloneIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available, skipping test")
	}

	upstream := initUpstream(t)
	install := t.TempDir()

	s := NewSyncer(Options{
		Fs:             afero.NewOsFs(),
		Runner:         runner.New(time.Minute),
		InstallPath:    install,
		ConnectorsPath: filepath.Join(install, "connectors"),
		Concurrency:    2,
	})
	comp := models.ComponentDescriptor{
		ID:        "opencti-connector-mitre",
		SourceURL: "file://" + upstream,
		Branch:    "master",
		Category:  models.CategoryConnectorExternalImport,
	}

	report := s.CloneAll(context.Background(), []models.ComponentDescriptor{comp})
	if len(report.Failures()) > 0 {
		t.Fatalf("clone failed: %+v", report.Failures()[0].Error)
	}

	cs := s.Status(comp)
	if !cs.Present || cs.Err != nil {
		t.Fatalf("unexpected status: %+v", cs)
	}
	if cs.Branch != "master" {
		t.Errorf("expected branch master, got %q", cs.Branch)
	}
	if len(cs.Commit) != 12 {
		t.Errorf("expected abbreviated commit, got %q", cs.Commit)
	}
	if !cs.Staged {
		t.Error("expected connector to be staged")
	}

	if _, err := os.Stat(filepath.Join(install, "connectors", comp.ID, ".git")); !os.IsNotExist(err) {
		t.Error("staged copy must not contain .git")
	}

	update := s.UpdateAll(context.Background(), []models.ComponentDescriptor{comp})
	if len(update.Failures()) > 0 {
		t.Fatalf("update failed: %+v", update.Failures()[0].Error)
	}
}
