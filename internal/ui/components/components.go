// Package components holds the templ components of the dashboard and the
// view models they render. Handlers stream them with datastar or render
// them into a page.
package components

import (
	"encoding/json"
	"fmt"

	"github.com/spcai/labcms/internal/filetree"
	"github.com/spcai/labcms/internal/overview"
	"github.com/spcai/labcms/internal/table"
	"github.com/spcai/labcms/pkg/core"
)

//go:generate go run github.com/a-h/templ/cmd/templ generate

// inputKind picks the inline editor of a column.
func inputKind(c table.Column) string {
	switch {
	case len(c.Options) > 0:
		return "select"
	case c.Kind == core.KindBool:
		return "bool"
	case c.Kind == core.KindList:
		return "list"
	default:
		return "text"
	}
}

func get(url string) string {
	return "@get('" + url + "')"
}

func post(url string) string {
	return "@post('" + url + "')"
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// selectPath stores p in the path signal and posts to url.
func selectPath(p, url string) string {
	return "$path = " + jsString(p) + "; " + post(url)
}

func dragPath(p string) string {
	return "evt.dataTransfer.setData('text/plain', " + jsString(p) + ")"
}

// dropInto moves the dragged object into folder. Drops on the dragged
// folder itself are ignored client side.
func dropInto(folder string) string {
	return "evt.preventDefault(); $path = evt.dataTransfer.getData('text/plain'); $destination = " +
		jsString(folder) + "; $path && $path !== $destination && " + post("/files/move")
}

func renameAction(n *filetree.Node) string {
	return "$path = " + jsString(n.Path) + "; $newName = prompt('New name', " + jsString(n.Name) +
		"); $newName && " + post("/files/rename")
}

func deleteAction(n *filetree.Node) string {
	return "$path = " + jsString(n.Path) + "; confirm('Delete ' + $path + '?') && " + post("/files/delete")
}

// NavItem is one link of the navigation bar.
type NavItem struct {
	Href   string
	Label  string
	Active bool
}

// ToastKind selects the toast color.
type ToastKind string

// Toast kinds.
const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a transient notification shown in #toasts.
type Toast struct {
	Kind    ToastKind `json:"kind"`
	Message string    `json:"message"`
}

// PageData describes the document around a page body.
type PageData struct {
	Title      string
	Nav        []NavItem
	UpdatesURL string
	// Signals are the initial datastar signals of the page.
	Signals map[string]any
	Toasts  []Toast
	Dev     bool
}

// TotalItem is the row count of one table.
type TotalItem struct {
	Table string
	Title string
	Count int
}

// OverviewData is the content of the landing page.
type OverviewData struct {
	Stats  overview.Stats
	Totals []TotalItem
}

// peak is the largest monthly count, at least 1, used as the bar scale.
func (d OverviewData) peak() int {
	peak := 1
	for _, m := range d.Stats.PerMonth {
		peak = max(peak, m.Count)
	}
	return peak
}

// TableData is a record table bound to the routes under Base.
type TableData struct {
	Base         string
	View         table.View
	EmptyMessage string
}

// Span is the number of columns of a table row.
func (d TableData) Span() int {
	n := len(d.View.Columns) + 1
	if d.View.Image != nil {
		n++
	}
	return n
}

func (d TableData) action(name string) string {
	return post(d.Base + "/" + name)
}

func (d TableData) turnPage(delta int) string {
	return fmt.Sprintf("$page = %d; %s", d.View.Page+delta, d.action("table"))
}

func (d TableData) emptyMessage() string {
	if d.EmptyMessage == "" {
		return table.EmptyMessage
	}
	return d.EmptyMessage
}

// FieldKind selects the input of an add form field.
type FieldKind string

// Add form field kinds.
const (
	FieldText      FieldKind = "text"
	FieldTextArea  FieldKind = "textarea"
	FieldSelect    FieldKind = "select"
	FieldCheckbox  FieldKind = "checkbox"
	FieldList      FieldKind = "list"
	FieldMonthYear FieldKind = "month-year"
	FieldFile      FieldKind = "file"
)

// FormField is one input of an add form.
type FormField struct {
	Name     string
	Label    string
	Kind     FieldKind
	Options  []string
	Required bool
}

func (f FormField) label() string {
	if f.Required {
		return f.Label + " *"
	}
	return f.Label
}

// EntityData is the content of an entity page.
type EntityData struct {
	Title    string
	Singular string
	Fields   []FormField
	Table    TableData
}

// TreeData is the file tree of one browser.
type TreeData struct {
	CurrentPath string
	Nodes       []*filetree.Node
}

// PreviewData is the file viewer content.
type PreviewData struct {
	Kind  filetree.PreviewKind
	Name  string
	Text  string
	Error string
	// Source is the data URL of an image preview.
	Source string
}

// NewPreviewData converts a preview for rendering. Image sources are data
// URLs built from downloaded content.
func NewPreviewData(p filetree.Preview) PreviewData {
	return PreviewData{
		Kind:   p.Kind,
		Name:   p.Name,
		Text:   p.Text,
		Error:  p.Error,
		Source: p.Source,
	}
}

// FilesData is the content of the file browser page.
type FilesData struct {
	Bucket  string
	Tree    TreeData
	Preview PreviewData
}
