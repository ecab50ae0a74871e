package lifecycle

import (
	"context"
	"path/filepath"

	"github.com/spachava753/ctictl/internal/runner"
)

// Orchestrator brings a multi-container project described by a compose file
// up or down. Both calls block until the collaborator exits.
type Orchestrator interface {
	// Name returns the orchestrator name (e.g., "docker").
	Name() string

	// Up creates and starts every service in file, detached.
	Up(ctx context.Context, project, file string) ([]byte, error)

	// Down stops and removes the project's containers and networks.
	Down(ctx context.Context, project, file string) ([]byte, error)
}

// DockerCompose drives the docker compose plugin through a Runner.
type DockerCompose struct {
	runner runner.Runner
	bin    string
}

// NewDockerCompose creates an Orchestrator that invokes "<bin> compose".
func NewDockerCompose(r runner.Runner, bin string) *DockerCompose {
	if bin == "" {
		bin = "docker"
	}
	return &DockerCompose{runner: r, bin: bin}
}

// Name returns the orchestrator name.
func (d *DockerCompose) Name() string {
	return "docker"
}

// Up runs "docker compose -p project -f file up -d".
func (d *DockerCompose) Up(ctx context.Context, project, file string) ([]byte, error) {
	return d.compose(ctx, project, file, "up", "-d")
}

// Down runs "docker compose -p project -f file down".
func (d *DockerCompose) Down(ctx context.Context, project, file string) ([]byte, error) {
	return d.compose(ctx, project, file, "down")
}

func (d *DockerCompose) compose(ctx context.Context, project, file string, args ...string) ([]byte, error) {
	full := append([]string{"compose", "-p", project, "-f", file}, args...)
	// Component paths in the merged descriptor are anchored at the connectors
	// directory, so compose runs from there
	return d.runner.Run(ctx, filepath.Dir(file), d.bin, full...)
}
