package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{"md", ModeMarkdown, false},
		{"markdown", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"empty piped", "", false, ModeMarkdown},
		{"explicit json", ModeJSON, true, ModeJSON},
		{"explicit text piped", ModeText, false, ModeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_Table(t *testing.T) {
	headers := []string{"Name", "Email"}
	rows := [][]string{{"Ada", "ada@example.com"}, {"Grace", ""}}

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table(headers, rows)
		assert.Contains(t, strings.ToLower(out.String()), "| name | email |")
		assert.Contains(t, out.String(), "| --- | --- |")
		assert.Contains(t, out.String(), "| Ada | ada@example.com |")
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		r.Table(headers, rows)
		assert.Contains(t, out.String(), "┌")
		assert.Contains(t, strings.ToLower(out.String()), "email")
		assert.Contains(t, out.String(), "Grace")
	})
}

func TestRenderer_TextWithoutTerminalHasNoEscapes(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)
	r.Header(1, "Faculty")
	r.Success("Seeded 3 rows")
	r.StatusLine("faculty", "success", "3 rows")
	r.Error("boom")

	assert.NotContains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "Faculty\n───────")
	assert.Contains(t, out.String(), "✓ faculty 3 rows")
	assert.Equal(t, "✗ boom\n", errOut.String())
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(SeedOutput{File: "seed.yaml", Tables: []SeedTable{{Table: "faculty", Rows: 2}}, Total: 2}))
	assert.JSONEq(t, `{"file":"seed.yaml","tables":[{"table":"faculty","rows":2}],"total":2}`, out.String())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "## Totals", FormatHeader(2, "Totals"))
	assert.Equal(t, "# Top", FormatHeader(0, "Top"))
	assert.Equal(t, "**Bucket:** spcai_images", FormatKeyValue("Bucket", "spcai_images"))
	assert.Equal(t, "- a\n- b", FormatList([]string{"a", "b"}))
	assert.Equal(t, "abcdefg...", Truncate(strings.Repeat("abcdefghij", 2), 10))
	assert.Equal(t, "short", Truncate("short", 10))
}
