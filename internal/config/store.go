package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/ctictl/internal/catalog"
	"github.com/spachava753/ctictl/internal/models"
	"github.com/spachava753/ctictl/internal/util"
)

const (
	defaultInstallDir    = "opencti-ecosystem"
	defaultConnectorsDir = "connectors"
)

// DefaultSelectionConfig returns a SelectionConfig with every catalog entry
// enabled and checkouts under baseDir.
func DefaultSelectionConfig(cat *catalog.Catalog, baseDir string) models.SelectionConfig {
	repos := make(map[string]bool, cat.Len())
	for _, id := range cat.IDs() {
		repos[id] = true
	}
	installPath := filepath.Join(baseDir, defaultInstallDir)
	return models.SelectionConfig{
		Repositories:   repos,
		InstallPath:    installPath,
		ConnectorsPath: filepath.Join(installPath, defaultConnectorsDir),
	}
}

// Load reads the selection config at path. When the file does not exist a
// default config is synthesized next to it, persisted, and returned.
func Load(fsys afero.Fs, path string, cat *catalog.Catalog) (models.SelectionConfig, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		baseDir, err := baseDirFor(path)
		if err != nil {
			return models.SelectionConfig{}, models.NewError(models.ErrConfig, "", err)
		}
		cfg := DefaultSelectionConfig(cat, baseDir)
		slog.Info("creating default selection config", "path", path, "install_path", cfg.InstallPath)
		if err := Save(fsys, cfg, path); err != nil {
			return models.SelectionConfig{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return models.SelectionConfig{}, models.NewError(models.ErrConfig, "", fmt.Errorf("reading selection config: %w", err))
	}

	var cfg models.SelectionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, models.NewError(models.ErrConfig, "", fmt.Errorf("parsing selection config %s: %w", path, err))
	}

	if err := validate(cfg, cat); err != nil {
		return cfg, models.NewError(models.ErrConfig, "", fmt.Errorf("%s: %w", path, err))
	}

	// Apply defaults for missing values
	if cfg.Repositories == nil {
		cfg.Repositories = make(map[string]bool)
	}
	if cfg.ConnectorsPath == "" {
		cfg.ConnectorsPath = filepath.Join(cfg.InstallPath, defaultConnectorsDir)
	}

	// Relative paths are anchored at the config file's directory
	configDir := filepath.Dir(path)
	if !filepath.IsAbs(cfg.InstallPath) {
		cfg.InstallPath = filepath.Join(configDir, cfg.InstallPath)
	}
	if !filepath.IsAbs(cfg.ConnectorsPath) {
		cfg.ConnectorsPath = filepath.Join(configDir, cfg.ConnectorsPath)
	}

	return cfg, nil
}

func validate(cfg models.SelectionConfig, cat *catalog.Catalog) error {
	if cfg.InstallPath == "" {
		return fmt.Errorf("install_path must not be empty")
	}

	var unknown []string
	for id := range cfg.Repositories {
		if !cat.Has(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("repositories: unknown component ids %v", unknown)
	}
	return nil
}

func baseDirFor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}
	return filepath.Dir(abs), nil
}

// Save writes cfg to path through a temporary file and a rename so readers
// never observe a partial config.
func Save(fsys afero.Fs, cfg models.SelectionConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return models.NewError(models.ErrConfig, "", fmt.Errorf("encoding selection config: %w", err))
	}
	if err := util.WriteFileAtomic(fsys, path, data, 0644); err != nil {
		return models.NewError(models.ErrConfig, "", fmt.Errorf("writing selection config: %w", err))
	}
	return nil
}

// IsEnabled reports whether the component with the given id is selected.
// Ids missing from the persisted map fall back to the component's required flag.
func IsEnabled(cfg models.SelectionConfig, comp models.ComponentDescriptor) bool {
	if enabled, ok := cfg.Repositories[comp.ID]; ok {
		return enabled
	}
	return comp.Required
}

// Enabled returns the selected components in catalog order.
func Enabled(cfg models.SelectionConfig, cat *catalog.Catalog) []models.ComponentDescriptor {
	var out []models.ComponentDescriptor
	for _, comp := range cat.All() {
		if !IsEnabled(cfg, comp) {
			if comp.Required {
				slog.Warn("required component disabled in selection config", "component", comp.ID)
			}
			continue
		}
		out = append(out, comp)
	}
	return out
}
