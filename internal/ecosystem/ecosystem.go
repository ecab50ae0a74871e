// Package ecosystem wires settings, catalog, selection config and the
// collaborators together for one invocation.
package ecosystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/spf13/afero"

	"github.com/spachava753/ctictl/internal/catalog"
	"github.com/spachava753/ctictl/internal/compose"
	"github.com/spachava753/ctictl/internal/config"
	"github.com/spachava753/ctictl/internal/lifecycle"
	"github.com/spachava753/ctictl/internal/models"
	"github.com/spachava753/ctictl/internal/repository"
	"github.com/spachava753/ctictl/internal/runner"
)

// Options overrides the collaborators used by an Ecosystem. Zero values mean
// the OS filesystem and real processes.
type Options struct {
	Fs     afero.Fs
	Runner runner.Runner
}

// Ecosystem is the resolved state of one invocation.
type Ecosystem struct {
	settings models.Settings
	catalog  *catalog.Catalog
	cfg      models.SelectionConfig

	fs        afero.Fs
	syncer    *repository.Syncer
	lifecycle *lifecycle.Controller
}

// ComponentInfo is one row of the component listing.
type ComponentInfo struct {
	Component models.ComponentDescriptor
	Enabled   bool
	Checkout  repository.CheckoutStatus
}

// Open validates settings, loads the catalog and the selection config, and
// builds the collaborators. Errors are classified config or catalog errors.
func Open(ctx context.Context, settings models.Settings, opts Options) (*Ecosystem, error) {
	if err := config.ValidateSettings(settings); err != nil {
		return nil, err
	}

	cat, err := catalog.Load(ctx, settings.Catalog)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	cfg, err := config.Load(fsys, settings.ConfigPath, cat)
	if err != nil {
		return nil, fmt.Errorf("loading selection config: %w", err)
	}

	r := opts.Runner
	if r == nil {
		r = runner.New(settings.Timeout)
	}

	slog.Debug("ecosystem opened",
		"catalog_components", cat.Len(),
		"install_path", cfg.InstallPath,
		"connectors_path", cfg.ConnectorsPath)

	return &Ecosystem{
		settings: settings,
		catalog:  cat,
		cfg:      cfg,
		fs:       fsys,
		syncer: repository.NewSyncer(repository.Options{
			Fs:             fsys,
			Runner:         r,
			GitBin:         settings.GitBin,
			InstallPath:    cfg.InstallPath,
			ConnectorsPath: cfg.ConnectorsPath,
			Concurrency:    settings.Concurrency,
		}),
		lifecycle: lifecycle.NewController(fsys, lifecycle.NewDockerCompose(r, settings.DockerBin), settings.Project),
	}, nil
}

// Config returns the loaded selection config.
func (e *Ecosystem) Config() models.SelectionConfig {
	return e.cfg
}

// List describes every catalog component in catalog order.
func (e *Ecosystem) List() []ComponentInfo {
	var out []ComponentInfo
	for _, comp := range e.catalog.All() {
		out = append(out, ComponentInfo{
			Component: comp,
			Enabled:   config.IsEnabled(e.cfg, comp),
			Checkout:  e.syncer.Status(comp),
		})
	}
	return out
}

// Clone ensures the selected components are cloned. With no ids every enabled
// component is selected.
func (e *Ecosystem) Clone(ctx context.Context, ids ...string) (*models.SyncReport, error) {
	comps, err := e.selection(ids)
	if err != nil {
		return nil, err
	}
	return e.syncer.CloneAll(ctx, comps), nil
}

// Update pulls the selected components. Without explicit ids, enabled
// components that were never cloned are left alone.
func (e *Ecosystem) Update(ctx context.Context, ids ...string) (*models.SyncReport, error) {
	comps, err := e.selection(ids)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		var present []models.ComponentDescriptor
		for _, comp := range comps {
			if !e.syncer.Present(comp.ID) {
				slog.Info("skipping component without checkout", "component", comp.ID)
				continue
			}
			present = append(present, comp)
		}
		comps = present
	}
	return e.syncer.UpdateAll(ctx, comps), nil
}

// Merge regenerates the merged descriptor from the connectors directory.
func (e *Ecosystem) Merge() (models.AggregateReport, error) {
	report, err := compose.Merge(e.fs, e.cfg.ConnectorsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return report, models.NewError(models.ErrNotFound, "", fmt.Errorf("%w (run clone first)", err))
	}
	return report, err
}

// MergedPath returns where the merged descriptor lives.
func (e *Ecosystem) MergedPath() string {
	return compose.MergedPath(e.cfg.ConnectorsPath)
}

// Start brings the merged deployment up, synthesizing the descriptor if needed.
func (e *Ecosystem) Start(ctx context.Context) (*models.AggregateReport, error) {
	return e.lifecycle.Start(ctx, e.cfg.ConnectorsPath)
}

// Stop tears the merged deployment down.
func (e *Ecosystem) Stop(ctx context.Context) error {
	return e.lifecycle.Stop(ctx, e.cfg.ConnectorsPath)
}

// SetEnabled records the selection of the given components and persists the
// config. Disabling a connector also removes its staged copy so later merges
// leave it out; its checkout is kept for re-enabling.
func (e *Ecosystem) SetEnabled(enabled bool, ids ...string) error {
	if len(ids) == 0 {
		return models.Errorf(models.ErrConfig, "", "no component ids given")
	}
	if err := e.checkIDs(ids); err != nil {
		return err
	}

	repos := make(map[string]bool, len(e.cfg.Repositories)+len(ids))
	for id, v := range e.cfg.Repositories {
		repos[id] = v
	}
	for _, id := range ids {
		comp, _ := e.catalog.Get(id)
		if !enabled && comp.Required {
			slog.Warn("disabling required component", "component", id)
		}
		repos[id] = enabled
	}

	updated := e.cfg
	updated.Repositories = repos
	if err := config.Save(e.fs, updated, e.settings.ConfigPath); err != nil {
		return err
	}
	e.cfg = updated

	if enabled {
		return nil
	}
	var errs []error
	for _, id := range ids {
		comp, _ := e.catalog.Get(id)
		if err := e.syncer.Unstage(comp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// selection resolves ids to catalog components, or returns every enabled
// component when ids is empty. Explicit ids are honored even if disabled.
func (e *Ecosystem) selection(ids []string) ([]models.ComponentDescriptor, error) {
	if len(ids) == 0 {
		return config.Enabled(e.cfg, e.catalog), nil
	}
	if err := e.checkIDs(ids); err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.ComponentDescriptor
	for _, comp := range e.catalog.All() {
		if wanted[comp.ID] {
			out = append(out, comp)
		}
	}
	return out, nil
}

func (e *Ecosystem) checkIDs(ids []string) error {
	var unknown []string
	for _, id := range ids {
		if !e.catalog.Has(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return models.Errorf(models.ErrConfig, "", "unknown component ids %v", unknown)
	}
	return nil
}
