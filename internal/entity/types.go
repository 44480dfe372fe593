package entity

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/spcai/labcms/pkg/core"
)

// Affiliation is an organization the group works with.
type Affiliation struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type"`
	URL   string `yaml:"url" json:"url"`
	Image string `yaml:"image" json:"image"`
}

// ToRecord implements Entity.
func (a Affiliation) ToRecord() core.Record {
	return core.NewRecord(a.ID,
		field("name", a.Name),
		field("type", a.Type),
		field("url", a.URL),
		nullable(ImageColumn, a.Image),
	)
}

// Validate implements Entity.
func (a Affiliation) Validate() error {
	if err := required("name", a.Name); err != nil {
		return err
	}
	return oneOf("type", a.Type, AffiliationTypes)
}

// AffiliationFromRecord decodes a row of the affiliations table.
func AffiliationFromRecord(r core.Record) Affiliation {
	return Affiliation{
		ID:    r.ID,
		Name:  str(r, "name"),
		Type:  str(r, "type"),
		URL:   str(r, "url"),
		Image: str(r, ImageColumn),
	}
}

// AffiliationFromForm reads the add form.
func AffiliationFromForm(v url.Values) Affiliation {
	return Affiliation{
		Name: v.Get("name"),
		Type: v.Get("type"),
		URL:  v.Get("url"),
	}
}

// Faculty is a faculty member.
type Faculty struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Email    string `yaml:"email" json:"email"`
	Bio      string `yaml:"bio" json:"bio"`
	Image    string `yaml:"image" json:"image"`
	Scholar  string `yaml:"scholar" json:"scholar"`
	Website  string `yaml:"website" json:"website"`
	LinkedIn string `yaml:"linkedin" json:"linkedin"`
	Twitter  string `yaml:"twitter" json:"twitter"`
}

// ToRecord implements Entity.
func (f Faculty) ToRecord() core.Record {
	return core.NewRecord(f.ID,
		field("name", f.Name),
		field("email", f.Email),
		field("bio", f.Bio),
		nullable(ImageColumn, f.Image),
		field("scholar", f.Scholar),
		field("website", f.Website),
		field("linkedin", f.LinkedIn),
		field("twitter", f.Twitter),
	)
}

// Validate implements Entity.
func (f Faculty) Validate() error {
	return required("name", f.Name)
}

// FacultyFromRecord decodes a row of the faculty table.
func FacultyFromRecord(r core.Record) Faculty {
	return Faculty{
		ID:       r.ID,
		Name:     str(r, "name"),
		Email:    str(r, "email"),
		Bio:      str(r, "bio"),
		Image:    str(r, ImageColumn),
		Scholar:  str(r, "scholar"),
		Website:  str(r, "website"),
		LinkedIn: str(r, "linkedin"),
		Twitter:  str(r, "twitter"),
	}
}

// FacultyFromForm reads the add form.
func FacultyFromForm(v url.Values) Faculty {
	return Faculty{
		Name:     v.Get("name"),
		Email:    v.Get("email"),
		Bio:      v.Get("bio"),
		Scholar:  v.Get("scholar"),
		Website:  v.Get("website"),
		LinkedIn: v.Get("linkedin"),
		Twitter:  v.Get("twitter"),
	}
}

// Member is a student or researcher of the group.
type Member struct {
	ID                string   `yaml:"id" json:"id"`
	Name              string   `yaml:"name" json:"name"`
	Title             string   `yaml:"title" json:"title"`
	Advisor           string   `yaml:"advisor" json:"advisor"`
	Email             string   `yaml:"email" json:"email"`
	Image             string   `yaml:"image" json:"image"`
	GitHub            string   `yaml:"github" json:"github"`
	LinkedIn          string   `yaml:"linkedin" json:"linkedin"`
	Scholar           string   `yaml:"scholar" json:"scholar"`
	Twitter           string   `yaml:"twitter" json:"twitter"`
	Website           string   `yaml:"website" json:"website"`
	ResearchInterests []string `yaml:"research_interests" json:"research_interests"`
	Type              string   `yaml:"type" json:"type"`
}

// ToRecord implements Entity.
func (m Member) ToRecord() core.Record {
	return core.NewRecord(m.ID,
		field("name", m.Name),
		field("title", m.Title),
		field("advisor", m.Advisor),
		field("email", m.Email),
		nullable(ImageColumn, m.Image),
		field("github", m.GitHub),
		field("linkedin", m.LinkedIn),
		field("scholar", m.Scholar),
		field("twitter", m.Twitter),
		field("website", m.Website),
		core.Field{Name: "research_interests", Value: core.List(m.ResearchInterests...)},
		field("type", m.Type),
	)
}

// Validate implements Entity.
func (m Member) Validate() error {
	return required("name", m.Name)
}

// MemberFromRecord decodes a row of the members table.
func MemberFromRecord(r core.Record) Member {
	return Member{
		ID:                r.ID,
		Name:              str(r, "name"),
		Title:             str(r, "title"),
		Advisor:           str(r, "advisor"),
		Email:             str(r, "email"),
		Image:             str(r, ImageColumn),
		GitHub:            str(r, "github"),
		LinkedIn:          str(r, "linkedin"),
		Scholar:           str(r, "scholar"),
		Twitter:           str(r, "twitter"),
		Website:           str(r, "website"),
		ResearchInterests: r.Value("research_interests").AsList(),
		Type:              str(r, "type"),
	}
}

// MemberFromForm reads the add form. Research interests come from the
// repeated research_interests field and from interest-N fields, blanks
// dropped.
func MemberFromForm(v url.Values) Member {
	interests := nonBlank(v["research_interests"])

	var keys []string
	for k := range v {
		if strings.HasPrefix(k, "interest-") {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, _ := strconv.Atoi(strings.TrimPrefix(keys[i], "interest-"))
		nj, _ := strconv.Atoi(strings.TrimPrefix(keys[j], "interest-"))
		if ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		interests = append(interests, nonBlank(v[k])...)
	}

	return Member{
		Name:              v.Get("name"),
		Title:             v.Get("title"),
		Advisor:           v.Get("advisor"),
		Email:             v.Get("email"),
		GitHub:            v.Get("github"),
		LinkedIn:          v.Get("linkedin"),
		Scholar:           v.Get("scholar"),
		Twitter:           v.Get("twitter"),
		Website:           v.Get("website"),
		ResearchInterests: interests,
		Type:              v.Get("type"),
	}
}

// Project is a research or development project.
type Project struct {
	ID               string `yaml:"id" json:"id"`
	Name             string `yaml:"name" json:"name"`
	Title            string `yaml:"title" json:"title"`
	ShortDescription string `yaml:"short_description" json:"short_description"`
	Link             string `yaml:"link" json:"link"`
	IsFeatured       bool   `yaml:"is_featured" json:"is_featured"`
	IsOpenSource     bool   `yaml:"is_open_source" json:"is_open_source"`
	IsOurs           bool   `yaml:"is_ours" json:"is_ours"`
	ResearchStatus   string `yaml:"research_status" json:"research_status"`
	Status           string `yaml:"status" json:"status"`
	Type             string `yaml:"type" json:"type"`
}

// ToRecord implements Entity.
func (p Project) ToRecord() core.Record {
	return core.NewRecord(p.ID,
		field("name", p.Name),
		field("title", p.Title),
		field("short_description", p.ShortDescription),
		field("link", p.Link),
		core.Field{Name: "is_featured", Value: core.Bool(p.IsFeatured)},
		core.Field{Name: "is_open_source", Value: core.Bool(p.IsOpenSource)},
		core.Field{Name: "is_ours", Value: core.Bool(p.IsOurs)},
		field("research_status", p.ResearchStatus),
		field("status", p.Status),
		field("type", p.Type),
	)
}

// Validate implements Entity.
func (p Project) Validate() error {
	if err := required("name", p.Name); err != nil {
		return err
	}
	if err := oneOf("research_status", p.ResearchStatus, ResearchStatuses); err != nil {
		return err
	}
	if err := oneOf("status", p.Status, ProjectStatuses); err != nil {
		return err
	}
	return oneOf("type", p.Type, ProjectTypes)
}

// ProjectFromRecord decodes a row of the projects table.
func ProjectFromRecord(r core.Record) Project {
	return Project{
		ID:               r.ID,
		Name:             str(r, "name"),
		Title:            str(r, "title"),
		ShortDescription: str(r, "short_description"),
		Link:             str(r, "link"),
		IsFeatured:       r.Value("is_featured").AsBool(),
		IsOpenSource:     r.Value("is_open_source").AsBool(),
		IsOurs:           r.Value("is_ours").AsBool(),
		ResearchStatus:   str(r, "research_status"),
		Status:           str(r, "status"),
		Type:             str(r, "type"),
	}
}

// ProjectFromForm reads the add form. Checkboxes are set when their value
// is "true".
func ProjectFromForm(v url.Values) Project {
	return Project{
		Name:             v.Get("name"),
		Title:            v.Get("title"),
		ShortDescription: first(v, "short_description", "description"),
		Link:             v.Get("link"),
		IsFeatured:       checked(v, "is_featured"),
		IsOpenSource:     checked(v, "is_open_source") || checked(v, "is_openSource"),
		IsOurs:           checked(v, "is_ours"),
		ResearchStatus:   v.Get("research_status"),
		Status:           first(v, "status", "project_status"),
		Type:             first(v, "type", "project_type"),
	}
}

// Publication is a paper or preprint. Month and Year are only used when the
// publication is submitted; they are combined into Date.
type Publication struct {
	ID      string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Venue   string   `yaml:"venue" json:"venue"`
	Type    string   `yaml:"type" json:"type"`
	Date    string   `yaml:"date" json:"date"`
	Month   string   `yaml:"month,omitempty" json:"-"`
	Year    string   `yaml:"year,omitempty" json:"-"`
	Authors []string `yaml:"authors" json:"authors"`
	Tags    []string `yaml:"tags" json:"tags"`
	Links   []string `yaml:"links" json:"links"`
}

// ToRecord implements Entity. A submitted month and year replace Date.
func (p Publication) ToRecord() core.Record {
	date := p.Date
	if p.Month != "" || p.Year != "" {
		date = FormatDate(p.Month, p.Year)
	}
	return core.NewRecord(p.ID,
		field("title", p.Title),
		field("venue", p.Venue),
		field("type", p.Type),
		field("date", date),
		core.Field{Name: "authors", Value: core.List(p.Authors...)},
		core.Field{Name: "tags", Value: core.List(p.Tags...)},
		core.Field{Name: "links", Value: core.List(p.Links...)},
	)
}

// Validate implements Entity.
func (p Publication) Validate() error {
	if err := required("title", p.Title); err != nil {
		return err
	}
	if err := oneOf("type", p.Type, PublicationTypes); err != nil {
		return err
	}
	if p.Month != "" || p.Year != "" {
		return ValidateMonthYear(p.Month, p.Year)
	}
	return nil
}

// PublicationFromRecord decodes a row of the publications table.
func PublicationFromRecord(r core.Record) Publication {
	return Publication{
		ID:      r.ID,
		Title:   str(r, "title"),
		Venue:   str(r, "venue"),
		Type:    str(r, "type"),
		Date:    str(r, "date"),
		Authors: r.Value("authors").AsList(),
		Tags:    r.Value("tags").AsList(),
		Links:   r.Value("links").AsList(),
	}
}

// PublicationFromForm reads the add form. List fields are either repeated
// or a single JSON array.
func PublicationFromForm(v url.Values) Publication {
	return Publication{
		Title:   v.Get("title"),
		Venue:   v.Get("venue"),
		Type:    v.Get("type"),
		Month:   v.Get("month"),
		Year:    v.Get("year"),
		Authors: formList(v["authors"]),
		Tags:    formList(v["tags"]),
		Links:   formList(v["links"]),
	}
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// FormatDate renders a publication date as "MM, YYYY".
func FormatDate(month, year string) string {
	month = strings.TrimSpace(month)
	if len(month) < 2 {
		month = strings.Repeat("0", 2-len(month)) + month
	}
	return month + ", " + strings.TrimSpace(year)
}

// ValidateMonthYear checks a month in 1-12 and a four digit year.
func ValidateMonthYear(month, year string) error {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return fmt.Errorf("%w: month must be between 01 and 12", ErrValidation)
	}
	if !yearPattern.MatchString(strings.TrimSpace(year)) {
		return fmt.Errorf("%w: year must have four digits", ErrValidation)
	}
	return nil
}

func field(name, value string) core.Field {
	return core.Field{Name: name, Value: core.Text(value)}
}

func nullable(name, value string) core.Field {
	if value == "" {
		return core.Field{Name: name, Value: core.Null()}
	}
	return field(name, value)
}

func str(r core.Record, name string) string {
	return r.Value(name).String()
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, name)
	}
	return nil
}

func oneOf(name, value string, options []string) error {
	if value == "" || slices.Contains(options, value) {
		return nil
	}
	return fmt.Errorf("%w: %s must be one of %s", ErrValidation, name, strings.Join(options, ", "))
}

func nonBlank(values []string) []string {
	out := []string{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func formList(values []string) []string {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var items []string
		if err := json.Unmarshal([]byte(values[0]), &items); err == nil {
			return nonBlank(items)
		}
	}
	return nonBlank(values)
}

func first(v url.Values, keys ...string) string {
	for _, k := range keys {
		if s := v.Get(k); s != "" {
			return s
		}
	}
	return ""
}

func checked(v url.Values, key string) bool {
	return v.Get(key) == "true"
}
