package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"

	"github.com/spachava753/ctictl/internal/models"
)

// LoadSettings reads runtime settings from the process environment.
func LoadSettings(ctx context.Context) (models.Settings, error) {
	return LoadSettingsWith(ctx, envconfig.OsLookuper())
}

// LoadSettingsWith reads runtime settings through the given lookuper.
func LoadSettingsWith(ctx context.Context, lookuper envconfig.Lookuper) (models.Settings, error) {
	var s models.Settings
	if err := envconfig.ProcessWith(ctx, &s, lookuper); err != nil {
		return s, models.NewError(models.ErrConfig, "", fmt.Errorf("reading environment: %w", err))
	}
	if err := ValidateSettings(s); err != nil {
		return s, err
	}
	return s, nil
}

// ValidateSettings checks settings after flags and environment are applied.
func ValidateSettings(s models.Settings) error {
	if s.Concurrency < 1 {
		return models.Errorf(models.ErrConfig, "", "concurrency must be at least 1, got %d", s.Concurrency)
	}
	if s.Timeout <= 0 {
		return models.Errorf(models.ErrConfig, "", "timeout must be positive, got %s", s.Timeout)
	}
	if s.ConfigPath == "" {
		return models.Errorf(models.ErrConfig, "", "config path must not be empty")
	}
	if s.GitBin == "" || s.DockerBin == "" {
		return models.Errorf(models.ErrConfig, "", "git and docker binaries must be set")
	}
	return nil
}
