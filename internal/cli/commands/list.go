package commands

import (
	"fmt"

	"github.com/spcai/labcms/internal/cli/output"
	"github.com/spcai/labcms/internal/table"
	"github.com/spcai/labcms/pkg/core"
	"github.com/spf13/cobra"
)

// listCellWidth bounds terminal table cells.
const listCellWidth = 40

// ListOptions holds options for the list command.
type ListOptions struct {
	Search string
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List the rows of a content table",
		Long: `List the rows of affiliations, faculty, members, projects or publications.

--search keeps rows with the term in any non-empty field, ignoring case,
the same way the dashboard search box does.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown table (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List all faculty
  labcms list faculty

  # Search publications
  labcms list publications --search transformer

  # Export projects as JSON
  labcms list projects -o json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Only rows containing this text")

	return cmd
}

func runList(cmd *cobra.Command, name string, opts *ListOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := lookupService(cc.Registry, name)
	if err != nil {
		return err
	}
	records, err := svc.Records(cmd.Context())
	if err != nil {
		return err
	}
	records = table.Filter(records, opts.Search)
	desc := svc.Descriptor()

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(recordsOutput(name, records))
	}

	headers := []string{"ID"}
	var cols []table.Column
	for _, col := range desc.Columns {
		if col.Image {
			continue
		}
		cols = append(cols, col)
		headers = append(headers, col.Label)
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := []string{rec.ID}
		for _, col := range cols {
			row = append(row, output.Truncate(rec.Value(col.Name).String(), listCellWidth))
		}
		rows = append(rows, row)
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, desc.Title))
		r.Println("")
		if len(rows) == 0 {
			r.Println(table.EmptyMessage)
			return nil
		}
		r.Table(headers, rows)
		r.Println("")
		r.Printf("**Total:** %d\n", len(rows))
		return nil
	}

	r.Header(1, desc.Title)
	if len(rows) == 0 {
		r.Muted(table.EmptyMessage)
		return nil
	}
	r.Table(headers, rows)
	r.Muted(fmt.Sprintf("%d rows", len(rows)))
	return nil
}

func recordsOutput(name string, records []core.Record) output.RecordsOutput {
	out := output.RecordsOutput{
		Table:   name,
		Total:   len(records),
		Records: make([]map[string]any, 0, len(records)),
	}
	for _, rec := range records {
		m := make(map[string]any, len(rec.Fields)+1)
		for _, k := range rec.Keys() {
			m[k] = rec.Value(k).Native()
		}
		out.Records = append(out.Records, m)
	}
	return out
}
