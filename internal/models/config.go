package models

import "time"

// SelectionConfig is the persisted record of which components are enabled and
// where checkouts and the staged connectors live.
type SelectionConfig struct {
	Repositories   map[string]bool `yaml:"repositories" json:"repositories"`
	InstallPath    string          `yaml:"install_path" json:"install_path"`
	ConnectorsPath string          `yaml:"connectors_path" json:"connectors_path"`
}

// Settings are per-invocation runtime knobs. They are never persisted.
type Settings struct {
	ConfigPath  string        `env:"CTICTL_CONFIG,default=opencti_config.yaml"`
	Catalog     string        `env:"CTICTL_CATALOG"`
	Concurrency int           `env:"CTICTL_CONCURRENCY,default=4"`
	Timeout     time.Duration `env:"CTICTL_TIMEOUT,default=5m"`
	GitBin      string        `env:"CTICTL_GIT,default=git"`
	DockerBin   string        `env:"CTICTL_DOCKER,default=docker"`
	Project     string        `env:"CTICTL_PROJECT,default=opencti-ecosystem"`
	LogLevel    string        `env:"CTICTL_LOG_LEVEL,default=info"`
}
