package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcai/labcms/internal/cli/config"
	clitest "github.com/spcai/labcms/internal/cli/testutil"
	"github.com/spcai/labcms/internal/testutil"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

type harness struct {
	t   *testing.T
	cfg *config.Config
	dir string
}

func newHarness(t *testing.T, format string) *harness {
	t.Helper()
	path := clitest.SetupTestProject(t)
	cfg, err := config.LoadConfig(path, nil)
	require.NoError(t, err)
	cfg.OutputFormat = format
	return &harness{t: t, cfg: cfg, dir: filepath.Dir(path)}
}

// run executes cmd with the harness config in its context and returns stdout.
func (h *harness) run(cmd *cobra.Command, args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	ctx := config.WithConfig(context.Background(), h.cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(h.t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// runJSON runs cmd in JSON mode and decodes its output into v.
func (h *harness) runJSON(v any, cmd *cobra.Command, args ...string) {
	h.t.Helper()
	prev := h.cfg.OutputFormat
	h.cfg.OutputFormat = "json"
	defer func() { h.cfg.OutputFormat = prev }()

	out, err := h.run(cmd, args...)
	require.NoError(h.t, err)
	require.NoError(h.t, json.Unmarshal([]byte(out), v), out)
}

// =============================================================================
// Command metadata
// =============================================================================

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewServeCommand(), use: "serve", flags: []string{"port", "no-browser", "watch", "dev"}},
		{cmd: NewMigrateCommand(), use: "migrate"},
		{cmd: NewSeedCommand(), use: "seed <file.yaml>"},
		{cmd: NewListCommand(), use: "list <table>", flags: []string{"search"}},
		{cmd: NewFilesCommand(), use: "files"},
		{cmd: NewOverviewCommand(), use: "overview"},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestFilesSubcommands(t *testing.T) {
	var names []string
	for _, c := range NewFilesCommand().Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"ls", "upload", "mkdir", "rm"}, names)
}

func TestNewCommandContext_RequiresConfig(t *testing.T) {
	cmd := NewMigrateCommand()
	cmd.SetArgs([]string{})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, errNoConfig)
}

func TestNewCommandContext_RejectsUnknownOutput(t *testing.T) {
	h := newHarness(t, "yaml")
	_, err := h.run(NewMigrateCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestCompleteTables(t *testing.T) {
	names, directive := completeTables(nil, nil, "")
	assert.Equal(t, []string{"affiliations", "faculty", "members", "projects", "publications"}, names)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	names, _ = completeTables(nil, []string{"faculty"}, "")
	assert.Empty(t, names)
}
