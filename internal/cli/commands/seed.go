package commands

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spcai/labcms/internal/cli/output"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// imageFileKey names a local image to upload with a seeded row. Relative
// paths are read from the fixture's directory.
const imageFileKey = "image_file"

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load content from a YAML fixture",
		Long: `Load rows from a YAML fixture through the same validation as the add forms.

The fixture maps table names to lists of rows. Row keys are add form fields;
lists become repeated fields and booleans become "true" or "false". An
image_file key uploads a local image into the table's image folder.

Tables are seeded in navigation order and loading stops at the first row
that fails validation.`,
		Example: `  # Load a fixture
  labcms seed content.yaml

  # Report as JSON
  labcms seed content.yaml --output json

Example fixture:

  faculty:
    - name: Ada Lovelace
      email: ada@example.edu
      image_file: images/ada.png
  publications:
    - title: Notes on the Analytical Engine
      type: journal
      month: 9
      year: 1843
      authors: [Ada Lovelace]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args[0])
		},
	}

	return cmd
}

func runSeed(cmd *cobra.Command, file string) error {
	fixture, err := readFixture(file)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	dir := filepath.Dir(file)
	result := output.SeedOutput{File: file, Tables: []output.SeedTable{}}

	order := seedOrder(cc.Registry, fixture)
	services := make([]entity.Service, len(order))
	for i, table := range order {
		if services[i], err = lookupService(cc.Registry, table); err != nil {
			return err
		}
	}

	for i, table := range order {
		svc := services[i]
		seeded := output.SeedTable{Table: table}
		for n, row := range fixture[table] {
			form, img, err := rowForm(row, dir)
			if err != nil {
				return fmt.Errorf("%s row %d: %w", table, n+1, err)
			}
			if err := svc.AddForm(ctx, form, img); err != nil {
				return fmt.Errorf("%s row %d: %w", table, n+1, err)
			}
			seeded.Rows++
		}
		cc.Logger.Debug("seeded table", "table", table, "rows", seeded.Rows)
		result.Tables = append(result.Tables, seeded)
		result.Total += seeded.Rows
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(result)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Seeded"))
		r.Println("")
		for _, t := range result.Tables {
			r.Println(output.FormatKeyValue(t.Table, strconv.Itoa(t.Rows)+" rows"))
		}
		r.Println("")
		r.Printf("**Total Rows:** %d\n", result.Total)
	default:
		r.Header(2, "Seeded")
		for _, t := range result.Tables {
			r.StatusLine(t.Table, "success", fmt.Sprintf("%d rows", t.Rows))
		}
		r.Println("")
		r.Muted(fmt.Sprintf("%d rows from %s", result.Total, file))
	}
	return nil
}

// readFixture parses a fixture file into table -> rows.
func readFixture(file string) (map[string][]map[string]any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var fixture map[string][]map[string]any
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", file, err)
	}
	return fixture, nil
}

// seedOrder returns the fixture's tables in navigation order, followed by
// unknown tables sorted by name.
func seedOrder(registry *entity.Registry, fixture map[string][]map[string]any) []string {
	var order []string
	known := map[string]bool{}
	for _, t := range registry.Tables() {
		known[t] = true
		if _, ok := fixture[t]; ok {
			order = append(order, t)
		}
	}
	var unknown []string
	for t := range fixture {
		if !known[t] {
			unknown = append(unknown, t)
		}
	}
	sort.Strings(unknown)
	return append(order, unknown...)
}

// rowForm turns a fixture row into add form values and an optional image.
func rowForm(row map[string]any, dir string) (url.Values, *entity.ImageUpload, error) {
	form := url.Values{}
	var img *entity.ImageUpload

	for key, value := range row {
		if key == imageFileKey {
			p, ok := value.(string)
			if !ok || p == "" {
				return nil, nil, fmt.Errorf("%s must be a file path", imageFileKey)
			}
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read image: %w", err)
			}
			img = &entity.ImageUpload{Filename: filepath.Base(p), Data: data}
			continue
		}

		switch v := value.(type) {
		case nil:
		case []any:
			for _, item := range v {
				form.Add(key, fmt.Sprint(item))
			}
		case bool:
			form.Set(key, strconv.FormatBool(v))
		default:
			form.Set(key, fmt.Sprint(v))
		}
	}
	return form, img, nil
}
