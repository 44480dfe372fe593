package entity

import (
	"net/url"
	"testing"

	"github.com/spcai/labcms/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		month, year, want string
	}{
		{"03", "2024", "03, 2024"},
		{"3", "2024", "03, 2024"},
		{"12", "1999", "12, 1999"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDate(tt.month, tt.year))
	}
}

func TestValidateMonthYear(t *testing.T) {
	tests := []struct {
		name    string
		month   string
		year    string
		wantErr bool
	}{
		{"valid", "03", "2024", false},
		{"unpadded", "7", "2020", false},
		{"month zero", "0", "2024", true},
		{"month thirteen", "13", "2024", true},
		{"month text", "March", "2024", true},
		{"short year", "03", "24", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMonthYear(tt.month, tt.year)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		entity  Entity
		wantErr bool
	}{
		{"affiliation ok", Affiliation{Name: "MIT", Type: "university"}, false},
		{"affiliation without name", Affiliation{Type: "university"}, true},
		{"affiliation bad type", Affiliation{Name: "X", Type: "club"}, true},
		{"faculty without name", Faculty{Email: "a@b"}, true},
		{"member ok", Member{Name: "Ada"}, false},
		{"project bad status", Project{Name: "P", Status: "paused"}, true},
		{"project ok", Project{Name: "P", Status: "on_hold", Type: "design", ResearchStatus: "planned"}, false},
		{"publication without title", Publication{Venue: "X"}, true},
		{"publication bad month", Publication{Title: "T", Month: "14", Year: "2024"}, true},
		{"publication ok", Publication{Title: "T", Type: "preprint", Month: "01", Year: "2024"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entity.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemberFromForm(t *testing.T) {
	form := url.Values{
		"name":               {"Ada"},
		"research_interests": {"Compilers", " "},
		"interest-10":        {"Logic"},
		"interest-2":         {"Math"},
		"interest-3":         {""},
	}
	m := MemberFromForm(form)
	assert.Equal(t, "Ada", m.Name)
	assert.Equal(t, []string{"Compilers", "Math", "Logic"}, m.ResearchInterests)
}

func TestProjectFromForm(t *testing.T) {
	form := url.Values{
		"name":           {"Atlas"},
		"description":    {"Maps"},
		"is_featured":    {"true"},
		"is_openSource":  {"true"},
		"is_ours":        {"on"},
		"project_status": {"active"},
		"project_type":   {"research"},
	}
	p := ProjectFromForm(form)
	assert.Equal(t, "Maps", p.ShortDescription)
	assert.True(t, p.IsFeatured)
	assert.True(t, p.IsOpenSource)
	assert.False(t, p.IsOurs, "only the value true checks a box")
	assert.Equal(t, "active", p.Status)
	assert.Equal(t, "research", p.Type)
}

func TestPublicationFromForm(t *testing.T) {
	form := url.Values{
		"title":   {"Paper"},
		"month":   {"03"},
		"year":    {"2024"},
		"authors": {`["A. One", "", "B. Two"]`},
		"tags":    {"ml", "systems"},
	}
	p := PublicationFromForm(form)
	assert.Equal(t, []string{"A. One", "B. Two"}, p.Authors)
	assert.Equal(t, []string{"ml", "systems"}, p.Tags)
	assert.Empty(t, p.Links)

	rec := p.ToRecord()
	assert.Equal(t, "03, 2024", rec.Value("date").AsString())
	assert.Equal(t, core.KindList, rec.Value("links").Kind())
}

func TestRecordRoundTrip(t *testing.T) {
	m := Member{
		ID:                "m1",
		Name:              "Ada",
		Image:             "http://x/storage/v1/object/public/b/member/1.png",
		ResearchInterests: []string{"Compilers"},
	}
	rec := m.ToRecord()
	assert.Equal(t, Members.Columns[0].Name, rec.Fields[0].Name)
	require.Len(t, rec.Fields, len(Members.Columns))
	for i, c := range Members.Columns {
		assert.Equal(t, c.Name, rec.Fields[i].Name, "field order follows the descriptor")
	}
	assert.Equal(t, m, MemberFromRecord(rec))

	a := Affiliation{ID: "a1", Name: "Lab"}
	assert.True(t, a.ToRecord().Value(ImageColumn).IsNull(), "missing images are stored as null")

	p := Project{ID: "p1", Name: "Atlas", IsOurs: true}
	assert.Equal(t, p, ProjectFromRecord(p.ToRecord()))
}

func TestTableNames_MatchRegistry(t *testing.T) {
	r := NewRegistry(core.Platform{}, nil)
	assert.Equal(t, r.Tables(), TableNames())
}
