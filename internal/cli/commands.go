package cli

import (
	"github.com/spf13/cobra"

	"github.com/spachava753/ctictl/internal/models"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog components and their local state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eco, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderList(eco.List())
		},
	}
}

func (a *app) newCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone [component-id...]",
		Short: "Clone selected components and stage connectors",
		Long: `Clone every enabled component, or only the given ones, at its pinned
branch. Components that already have a checkout are left untouched.
Connector checkouts are copied into the connectors directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eco, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			report, err := eco.Clone(cmd.Context(), args...)
			if err != nil {
				return err
			}
			return a.finishSync(report)
		},
	}
}

func (a *app) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [component-id...]",
		Short: "Fast-forward existing checkouts and restage connectors",
		Long: `Pull every enabled component that has a checkout, or only the given
ones. Named components without a checkout are reported as failures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eco, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			report, err := eco.Update(cmd.Context(), args...)
			if err != nil {
				return err
			}
			return a.finishSync(report)
		},
	}
}

func (a *app) newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Regenerate the merged compose descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eco, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			report, err := eco.Merge()
			if err != nil {
				return err
			}
			return a.renderAggregate(report, eco.MergedPath())
		},
	}
}

func (a *app) newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the merged deployment",
		Long: `Start every merged connector service with docker compose. The merged
descriptor is generated first when it does not exist yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eco, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			report, err := eco.Start(cmd.Context())
			if report != nil {
				if rerr := a.renderAggregate(*report, eco.MergedPath()); rerr != nil {
					return rerr
				}
			}
			return err
		},
	}
}

func (a *app) newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the merged deployment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eco, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return eco.Stop(cmd.Context())
		},
	}
}

func (a *app) newEnableCmd(enabled bool) *cobra.Command {
	use, short := "enable", "Select components in the config"
	long := "Select components in the config. Run clone and merge afterwards to deploy them."
	if !enabled {
		use, short = "disable", "Deselect components in the config"
		long = "Deselect components in the config and remove the staged copy of disabled\n" +
			"connectors. Checkouts are kept. Run merge afterwards to drop them from an\n" +
			"existing merged descriptor."
	}
	return &cobra.Command{
		Use:   use + " component-id...",
		Short: short,
		Long:  long,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eco, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return eco.SetEnabled(enabled, args...)
		},
	}
}

// finishSync prints a batch report and turns failures into a non-zero exit.
func (a *app) finishSync(report *models.SyncReport) error {
	if err := a.renderSync(report); err != nil {
		return err
	}
	if report.Failed > 0 || report.Cancelled {
		return errFailed
	}
	return nil
}
