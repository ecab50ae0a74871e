// Package cli implements the ctictl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/spachava753/ctictl/internal/config"
	"github.com/spachava753/ctictl/internal/ecosystem"
	"github.com/spachava753/ctictl/internal/models"
)

// errFailed marks a command whose report has already been printed but that
// must still exit non-zero.
var errFailed = errors.New("one or more components failed")

// app holds the state shared by every subcommand of one invocation.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	lookuper envconfig.Lookuper
	opts     ecosystem.Options

	settings models.Settings
	jsonOut  bool

	// flag values, applied over the environment when set
	configPath  string
	catalog     string
	concurrency int
	timeout     time.Duration
	logLevel    string
}

// Option customizes the command tree, mainly for tests.
type Option func(*app)

// WithLookuper replaces the process environment as the settings source.
func WithLookuper(l envconfig.Lookuper) Option {
	return func(a *app) { a.lookuper = l }
}

// WithEcosystemOptions overrides the filesystem and process runner.
func WithEcosystemOptions(opts ecosystem.Options) Option {
	return func(a *app) { a.opts = opts }
}

// NewRootCmd builds the ctictl command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer, options ...Option) *cobra.Command {
	a := &app{
		stdout:   stdout,
		stderr:   stderr,
		lookuper: envconfig.OsLookuper(),
	}
	for _, o := range options {
		o(a)
	}

	root := &cobra.Command{
		Use:   "ctictl",
		Short: "Manage a local OpenCTI ecosystem",
		Long: `ctictl tracks a catalog of git-hosted OpenCTI components, keeps local
checkouts of the selected ones in sync, merges every connector's compose
file into a single collision-free descriptor, and starts or stops the
resulting deployment with docker compose.

Selections are persisted in a YAML config file that is created with every
component enabled on first use.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "selection config file (env CTICTL_CONFIG, default opencti_config.yaml)")
	pf.StringVar(&a.catalog, "catalog", "", "catalog TOML path or URL (env CTICTL_CATALOG, default embedded)")
	pf.IntVar(&a.concurrency, "concurrency", 0, "parallel clone/update operations (env CTICTL_CONCURRENCY, default 4)")
	pf.DurationVar(&a.timeout, "timeout", 0, "per-operation timeout (env CTICTL_TIMEOUT, default 5m)")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (env CTICTL_LOG_LEVEL, default info)")
	pf.BoolVar(&a.jsonOut, "json", false, "print reports as JSON")

	root.AddCommand(
		a.newListCmd(),
		a.newCloneCmd(),
		a.newUpdateCmd(),
		a.newMergeCmd(),
		a.newStartCmd(),
		a.newStopCmd(),
		a.newEnableCmd(true),
		a.newEnableCmd(false),
	)
	return root
}

// setup resolves settings from the environment and flags and configures logging.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	s, err := config.LoadSettingsWith(cmd.Context(), a.lookuper)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("config") {
		s.ConfigPath = a.configPath
	}
	if flags.Changed("catalog") {
		s.Catalog = a.catalog
	}
	if flags.Changed("concurrency") {
		s.Concurrency = a.concurrency
	}
	if flags.Changed("timeout") {
		s.Timeout = a.timeout
	}
	if flags.Changed("log-level") {
		s.LogLevel = a.logLevel
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return models.Errorf(models.ErrConfig, "", "invalid log level %q", s.LogLevel)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level})))

	a.settings = s
	return nil
}

func (a *app) open(ctx context.Context) (*ecosystem.Ecosystem, error) {
	return ecosystem.Open(ctx, a.settings, a.opts)
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, options ...Option) int {
	root := NewRootCmd(stdout, stderr, options...)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errFailed) {
		fmt.Fprintf(stderr, "Error: %s\n", strings.TrimSpace(err.Error()))
	}
	return 1
}
