package commands

import (
	"strconv"
	"time"

	"github.com/spcai/labcms/internal/cli/output"
	"github.com/spcai/labcms/internal/overview"
	"github.com/spf13/cobra"
)

// NewOverviewCommand creates the overview command.
func NewOverviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show content totals and recent activity",
		Long: `Show the statistics of the dashboard home page: row totals per table,
publications of the past twelve months and the most recent projects.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOverview(cmd, time.Now())
		},
	}
}

func runOverview(cmd *cobra.Command, now time.Time) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tables := cc.Registry.Tables()
	stats, err := overview.Compute(cmd.Context(), cc.Platform.Rows, tables, now)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(stats)
	}

	totals := make([][]string, 0, len(tables))
	for _, svc := range cc.Registry.Services() {
		desc := svc.Descriptor()
		totals = append(totals, []string{desc.Title, strconv.Itoa(stats.Totals[desc.Table])})
	}
	months := make([][]string, 0, len(stats.PerMonth))
	for _, m := range stats.PerMonth {
		months = append(months, []string{m.Label, strconv.Itoa(m.Count)})
	}
	past := strconv.Itoa(stats.PublicationsPastYear)

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Overview"))
		r.Println("")
		r.Table([]string{"Table", "Rows"}, totals)
		r.Println("")
		r.Println(output.FormatKeyValue("Publications (past year)", past))
		r.Println("")
		r.Table([]string{"Month", "Publications"}, months)
		r.Println("")
		r.Println(output.FormatHeader(2, "Recent Projects"))
		r.Println("")
		r.Println(output.FormatList(stats.RecentProjects))
		return nil
	}

	r.Header(1, "Overview")
	r.Table([]string{"Table", "Rows"}, totals)
	r.Println("")
	r.KeyValue("Publications (past year)", past)
	r.Table([]string{"Month", "Publications"}, months)
	r.Println("")
	r.Header(2, "Recent Projects")
	if len(stats.RecentProjects) == 0 {
		r.Muted("No projects yet")
	}
	for _, name := range stats.RecentProjects {
		r.Println("  " + name)
	}
	return nil
}
