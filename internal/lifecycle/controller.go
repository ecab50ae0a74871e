// Package lifecycle starts and stops the merged connector deployment.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/spachava753/ctictl/internal/compose"
	"github.com/spachava753/ctictl/internal/models"
)

// Controller starts and stops the deployment described by the merged
// descriptor of a connectors directory.
type Controller struct {
	fs      afero.Fs
	orch    Orchestrator
	project string
}

// NewController creates a new Controller. A nil fs means the OS filesystem.
func NewController(fs afero.Fs, orch Orchestrator, project string) *Controller {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Controller{fs: fs, orch: orch, project: project}
}

// Start brings the deployment up. When no merged descriptor exists one is
// synthesized first and its aggregation report is returned; otherwise the
// existing descriptor is used as is and the report is nil.
func (c *Controller) Start(ctx context.Context, connectorsPath string) (*models.AggregateReport, error) {
	path := compose.MergedPath(connectorsPath)

	var report *models.AggregateReport
	exists, err := afero.Exists(c.fs, path)
	if err != nil {
		return nil, models.NewError(models.ErrLifecycle, "", fmt.Errorf("checking %s: %w", path, err))
	}
	if !exists {
		slog.Info("merged descriptor missing, synthesizing", "path", path)
		r, err := compose.Merge(c.fs, connectorsPath)
		if err != nil {
			return nil, models.NewError(models.ErrLifecycle, "", fmt.Errorf("synthesizing merged descriptor: %w", err))
		}
		report = &r
	}

	slog.Info("starting deployment", "orchestrator", c.orch.Name(), "project", c.project, "file", path)
	out, err := c.orch.Up(ctx, c.project, path)
	if err != nil {
		return report, lifecycleError("starting deployment", err, out)
	}
	slog.Info("deployment started", "project", c.project)
	return report, nil
}

// Stop tears the deployment down. It never synthesizes a descriptor: without
// one there is nothing known to stop.
func (c *Controller) Stop(ctx context.Context, connectorsPath string) error {
	path := compose.MergedPath(connectorsPath)

	exists, err := afero.Exists(c.fs, path)
	if err != nil {
		return models.NewError(models.ErrLifecycle, "", fmt.Errorf("checking %s: %w", path, err))
	}
	if !exists {
		return models.Errorf(models.ErrNotFound, "", "no merged descriptor at %s", path)
	}

	slog.Info("stopping deployment", "orchestrator", c.orch.Name(), "project", c.project, "file", path)
	out, err := c.orch.Down(ctx, c.project, path)
	if err != nil {
		return lifecycleError("stopping deployment", err, out)
	}
	slog.Info("deployment stopped", "project", c.project)
	return nil
}

func lifecycleError(action string, err error, out []byte) *models.Error {
	e := models.NewError(models.ErrLifecycle, "", fmt.Errorf("%s: %w", action, err))
	e.Output = string(out)
	return e
}
