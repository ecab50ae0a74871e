package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/spachava753/ctictl/internal/ecosystem"
	"github.com/spachava753/ctictl/internal/models"
)

func (a *app) newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(a.stdout)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeader(header)
	return table
}

func (a *app) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}

type listEntry struct {
	models.ComponentDescriptor
	Enabled  bool   `json:"enabled"`
	Present  bool   `json:"present"`
	Checkout string `json:"checkout"`
}

func (a *app) renderList(rows []ecosystem.ComponentInfo) error {
	if a.jsonOut {
		out := make([]listEntry, 0, len(rows))
		for _, r := range rows {
			out = append(out, listEntry{
				ComponentDescriptor: r.Component,
				Enabled:             r.Enabled,
				Present:             r.Checkout.Present,
				Checkout:            r.Checkout.String(),
			})
		}
		return a.writeJSON(out)
	}

	table := a.newTable("ID", "Name", "Category", "Type", "Enabled", "Checkout")
	for _, r := range rows {
		kind := "Optional"
		if r.Component.Required {
			kind = "Required"
		}
		table.Append([]string{
			r.Component.ID,
			r.Component.DisplayName,
			string(r.Component.Category),
			kind,
			yesNo(r.Enabled),
			r.Checkout.String(),
		})
	}
	table.Render()
	return nil
}

func (a *app) renderSync(report *models.SyncReport) error {
	if a.jsonOut {
		return a.writeJSON(report)
	}

	table := a.newTable("Component", "Status", "Staged", "Duration", "Error")
	for _, r := range report.Results {
		msg := ""
		if r.Error != nil {
			msg = firstLine(r.Error.Message)
		}
		table.Append([]string{
			r.Component,
			string(r.Status),
			yesNo(r.Staged),
			fmt.Sprintf("%.1fs", r.DurationSec),
			msg,
		})
	}
	table.Render()

	fmt.Fprintf(a.stdout, "\nOperation: %s\n", report.Operation)
	fmt.Fprintf(a.stdout, "Total: %d\n", report.Total)
	fmt.Fprintf(a.stdout, "Succeeded: %d\n", report.Succeeded)
	fmt.Fprintf(a.stdout, "Failed: %d\n", report.Failed)
	if report.Skipped > 0 {
		fmt.Fprintf(a.stdout, "Skipped (cancelled): %d\n", report.Skipped)
	}
	fmt.Fprintf(a.stdout, "Duration: %.2fs\n", report.TotalDurationSec)

	for _, r := range report.Failures() {
		fmt.Fprintf(a.stdout, "\n%s\n", r.Error.Message)
	}
	return nil
}

func (a *app) renderAggregate(report models.AggregateReport, path string) error {
	if a.jsonOut {
		return a.writeJSON(struct {
			Path string `json:"path"`
			models.AggregateReport
		}{path, report})
	}

	fmt.Fprintf(a.stdout, "Merged descriptor: %s\n", path)
	fmt.Fprintf(a.stdout, "Components: %d\n", len(report.Components))
	fmt.Fprintf(a.stdout, "Services: %d\n", report.Services)

	if len(report.Skipped) > 0 {
		fmt.Fprintln(a.stdout)
		table := a.newTable("Skipped", "Reason")
		for _, s := range report.Skipped {
			table.Append([]string{s.Dir, firstLine(s.Error.Message)})
		}
		table.Render()
	}

	if len(report.Collisions) > 0 {
		fmt.Fprintln(a.stdout)
		table := a.newTable("Collision", "Name", "Kept", "Dropped")
		for _, c := range report.Collisions {
			table.Append([]string{string(models.ErrMergeCollision) + ": " + c.Kind, c.Name, c.Kept, c.Dropped})
		}
		table.Render()
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
