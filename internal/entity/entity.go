// Package entity holds the typed content entities of the dashboard and the
// controller that persists them through the platform.
package entity

import (
	"errors"

	"github.com/spcai/labcms/internal/table"
	"github.com/spcai/labcms/pkg/core"
)

// ErrValidation is returned when submitted content is rejected.
var ErrValidation = errors.New("validation failed")

// ImageColumn is the column holding an entity's public image URL.
const ImageColumn = "image"

// Entity is a typed row of one of the content tables.
type Entity interface {
	// ToRecord converts the entity to a row, without image handling.
	ToRecord() core.Record
	// Validate checks required fields and formats.
	Validate() error
}

// Descriptor describes how a table is stored and displayed.
type Descriptor struct {
	// Table is the row store table, also used in URLs.
	Table string
	// Title is the plural display name.
	Title string
	// Singular is the display name of one row.
	Singular string
	// ImageFolder is the object folder for uploaded images. Tables without
	// images leave it empty.
	ImageFolder string
	// Required is the column that must not be empty.
	Required string
	Columns  []table.Column
}

// HasImage reports whether rows of the table carry an image.
func (d Descriptor) HasImage() bool { return d.ImageFolder != "" }

// Column returns the descriptor of the named column.
func (d Descriptor) Column(name string) (table.Column, bool) {
	return table.Lookup(d.Columns, name)
}

// Enumerations offered by the add forms.
var (
	AffiliationTypes = []string{"university", "company", "organization", "other"}
	ResearchStatuses = []string{"ongoing", "completed", "planned"}
	ProjectStatuses  = []string{"active", "completed", "on_hold"}
	ProjectTypes     = []string{"research", "development", "design", "other"}
	PublicationTypes = []string{"journal", "conference", "workshop", "preprint"}
)

func text(name string) table.Column {
	return table.Column{Name: name, Label: table.Label(name), Kind: core.KindString, Editable: true}
}

func enum(name string, options []string) table.Column {
	c := text(name)
	c.Options = options
	return c
}

func list(name string) table.Column {
	return table.Column{Name: name, Label: table.Label(name), Kind: core.KindList, Editable: true}
}

func flag(name string) table.Column {
	return table.Column{Name: name, Label: table.Label(name), Kind: core.KindBool, Editable: true}
}

func image() table.Column {
	return table.Column{Name: ImageColumn, Label: "Image", Kind: core.KindString, Image: true}
}

// Table descriptors.
var (
	Affiliations = Descriptor{
		Table:       "affiliations",
		Title:       "Affiliations",
		Singular:    "affiliation",
		ImageFolder: "affiliations",
		Required:    "name",
		Columns: []table.Column{
			text("name"), enum("type", AffiliationTypes), text("url"), image(),
		},
	}

	FacultyTable = Descriptor{
		Table:       "faculty",
		Title:       "Faculty",
		Singular:    "faculty member",
		ImageFolder: "faculty",
		Required:    "name",
		Columns: []table.Column{
			text("name"), text("email"), text("bio"), image(), text("scholar"),
			text("website"), text("linkedin"), text("twitter"),
		},
	}

	Members = Descriptor{
		Table:       "members",
		Title:       "Members",
		Singular:    "member",
		ImageFolder: "member",
		Required:    "name",
		Columns: []table.Column{
			text("name"), text("title"), text("advisor"), text("email"), image(),
			text("github"), text("linkedin"), text("scholar"), text("twitter"),
			text("website"), list("research_interests"), text("type"),
		},
	}

	Projects = Descriptor{
		Table:    "projects",
		Title:    "Projects",
		Singular: "project",
		Required: "name",
		Columns: []table.Column{
			text("name"), text("title"), text("short_description"), text("link"),
			flag("is_featured"), flag("is_open_source"), flag("is_ours"),
			enum("research_status", ResearchStatuses), enum("status", ProjectStatuses),
			enum("type", ProjectTypes),
		},
	}

	Publications = Descriptor{
		Table:    "publications",
		Title:    "Publications",
		Singular: "publication",
		Required: "title",
		Columns: []table.Column{
			text("title"), text("venue"), enum("type", PublicationTypes), text("date"),
			list("authors"), list("tags"), list("links"),
		},
	}
)

// TableNames lists the content tables in navigation order.
func TableNames() []string {
	return []string{Affiliations.Table, FacultyTable.Table, Members.Table, Projects.Table, Publications.Table}
}
