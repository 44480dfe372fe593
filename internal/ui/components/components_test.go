package components

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/spcai/labcms/internal/filetree"
	"github.com/spcai/labcms/internal/overview"
	"github.com/spcai/labcms/internal/table"
	"github.com/spcai/labcms/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

// findByID walks the parsed document for the element with id.
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func sampleRecords() []core.Record {
	return []core.Record{
		core.NewRecord("1",
			core.Field{Name: "name", Value: core.Text("Ada Lovelace")},
			core.Field{Name: "image", Value: core.Text("http://localhost/storage/v1/object/public/b/faculty/a.png")},
			core.Field{Name: "tags", Value: core.List("ml", "systems")},
			core.Field{Name: "is_ours", Value: core.Bool(true)},
			core.Field{Name: "bio", Value: core.Text(strings.Repeat("x", 50))},
		),
		core.NewRecord("2",
			core.Field{Name: "name", Value: core.Text("Grace Hopper")},
			core.Field{Name: "image", Value: core.Null()},
			core.Field{Name: "tags", Value: core.List()},
			core.Field{Name: "is_ours", Value: core.Bool(false)},
			core.Field{Name: "bio", Value: core.Text("short")},
		),
	}
}

func TestPage(t *testing.T) {
	out := renderString(t, Page(PageData{
		Title:      "Faculty",
		Nav:        []NavItem{{Href: "/", Label: "Overview"}, {Href: "/faculty", Label: "Faculty", Active: true}},
		UpdatesURL: "/faculty/updates",
		Signals:    map[string]any{"search": "", "page": 1},
		Toasts:     []Toast{{Kind: ToastSuccess, Message: "Saved"}},
	}, templ.Raw("<p>body</p>")))

	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, "<title>Faculty - LabCMS</title>")
	assert.Contains(t, out, "<p>body</p>")
	assert.Contains(t, out, `aria-current="page"`)
	assert.Contains(t, out, "Saved")

	doc := parse(t, out)
	main := findByID(doc, "ui-content")
	require.NotNil(t, main)
	assert.Equal(t, "@get('/faculty/updates')", attr(main, "data-init"))
	assert.JSONEq(t, `{"page":1,"search":""}`, attr(main, "data-signals"))
	assert.NotNil(t, findByID(doc, "toasts"))
}

func TestLoadError(t *testing.T) {
	out := renderString(t, LoadError("connection refused", "/faculty"))
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, `href="/faculty"`)
	assert.Contains(t, out, "Reload page")
}

func TestRecordTable(t *testing.T) {
	records := sampleRecords()
	view := table.BuildView(records, nil, table.State{Page: 1}, 6)

	out := renderString(t, RecordTable(TableData{Base: "/faculty", View: view}))
	doc := parse(t, out)

	row := findByID(doc, "row-1")
	require.NotNil(t, row)
	assert.Contains(t, out, `<span class="chip">ml</span>`)
	assert.Contains(t, out, "<details class=\"expand\"><summary>"+strings.Repeat("x", 40)+"...</summary>")
	assert.Contains(t, out, `<span class="avatar-fallback">A</span>`)
	assert.Contains(t, out, "Page 1 of 1")
	assert.Contains(t, out, "checked")
	assert.NotContains(t, out, "confirm-delete")
}

func TestRecordTable_Editing(t *testing.T) {
	records := sampleRecords()
	cols := []table.Column{
		{Name: "name", Label: "Name", Kind: core.KindString, Editable: true},
		{Name: "image", Label: "Image", Kind: core.KindString, Image: true},
		{Name: "is_ours", Label: "Is Ours", Kind: core.KindBool, Editable: true},
	}
	state := table.State{Page: 1, Edit: table.Begin(records[0]), PendingDelete: "2"}
	view := table.BuildView(records, cols, state, 6)

	out := renderString(t, RecordTable(TableData{Base: "/faculty", View: view}))
	doc := parse(t, out)

	row := findByID(doc, "row-1")
	require.NotNil(t, row)
	assert.Equal(t, "editing", attr(row, "class"))
	assert.Contains(t, out, `data-bind="edited.name"`)
	assert.Contains(t, out, `value="Ada Lovelace"`)
	assert.Contains(t, out, `data-bind="edited.is_ours"`)
	assert.NotNil(t, findByID(doc, "confirm-delete"))
}

func TestRecordTable_Empty(t *testing.T) {
	out := renderString(t, RecordTable(TableData{Base: "/faculty", View: table.BuildView(nil, nil, table.State{}, 6)}))
	assert.Contains(t, out, table.EmptyMessage)
	assert.NotContains(t, out, "<table>")
}

func TestEntity_AddDialog(t *testing.T) {
	out := renderString(t, Entity(EntityData{
		Title:    "Publications",
		Singular: "publication",
		Fields: []FormField{
			{Name: "title", Label: "Title", Kind: FieldText, Required: true},
			{Name: "type", Label: "Type", Kind: FieldSelect, Options: []string{"journal"}},
			{Name: "date", Label: "Date", Kind: FieldMonthYear, Options: []string{"01", "02"}},
			{Name: "authors", Label: "Authors", Kind: FieldList},
		},
		Table: TableData{Base: "/publications", View: table.BuildView(nil, nil, table.State{}, 6)},
	}))

	assert.Contains(t, out, `action="/publications/add"`)
	assert.Contains(t, out, `enctype="multipart/form-data"`)
	assert.Contains(t, out, `<option value="journal">journal</option>`)
	assert.Contains(t, out, `name="month"`)
	assert.Contains(t, out, `name="year"`)
	assert.Equal(t, 2, strings.Count(out, `name="authors"`))
	assert.Contains(t, out, "Add publication")
}

func TestOverview(t *testing.T) {
	out := renderString(t, Overview(OverviewData{
		Stats: overview.Stats{
			PublicationsPastYear: 3,
			PerMonth:             []overview.MonthCount{{Label: "Jan 2026", Count: 2}, {Label: "Feb 2026", Count: 1}},
			RecentProjects:       []string{"Atlas"},
		},
		Totals: []TotalItem{{Table: "projects", Title: "Projects", Count: 4}},
	}))

	doc := parse(t, out)
	count := findByID(doc, "publications-past-year")
	require.NotNil(t, count)
	assert.Equal(t, "3", count.FirstChild.Data)
	assert.Contains(t, out, "<li>Atlas</li>")
	assert.Contains(t, out, `href="/projects"`)
	assert.Contains(t, out, `max="2"`)
}

func TestTreeAndPreview(t *testing.T) {
	nodes := []*filetree.Node{
		{ID: "faculty", Name: "faculty", Path: "faculty", IsFolder: true, Open: true, Children: []*filetree.Node{
			{ID: "faculty/a.png", Name: "a.png", Path: "faculty/a.png"},
		}},
	}
	out := renderString(t, Tree(TreeData{CurrentPath: "faculty", Nodes: nodes}))
	assert.Contains(t, out, "/faculty")
	assert.Contains(t, out, "a.png")
	assert.Contains(t, out, "/files/toggle")
	assert.Contains(t, out, "/files/preview")

	img := renderString(t, Preview(NewPreviewData(filetree.Preview{
		Kind: filetree.PreviewImage, Name: "a.png", Source: "data:image/png;base64,AAAA",
	})))
	assert.Contains(t, img, `src="data:image/png;base64,AAAA"`)

	failed := renderString(t, Preview(NewPreviewData(filetree.Preview{
		Kind: filetree.PreviewError, Name: "a.bin", Error: filetree.MsgUnsupported,
	})))
	assert.Contains(t, failed, filetree.MsgUnsupported)

	empty := renderString(t, Preview(PreviewData{}))
	assert.Contains(t, empty, "Select a file to preview")
}

func elements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	if n.Type == html.ElementNode && n.Data == tag {
		out = append(out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, elements(c, tag)...)
	}
	return out
}

func TestTree_DragAndDrop(t *testing.T) {
	nodes := []*filetree.Node{
		{ID: "faculty", Name: "faculty", Path: "faculty", IsFolder: true},
		{ID: "notes.md", Name: "notes.md", Path: "notes.md"},
	}
	doc := parse(t, renderString(t, Tree(TreeData{Nodes: nodes})))

	items := elements(doc, "li")
	require.Len(t, items, 2)
	folder, file := items[0], items[1]

	assert.Equal(t, "folder", attr(folder, "class"))
	drop := attr(folder, "data-on:drop__stop")
	assert.Contains(t, drop, `$destination = "faculty"`)
	assert.Contains(t, drop, "@post('/files/move')")
	assert.Equal(t, "evt.preventDefault()", attr(folder, "data-on:dragover"))

	assert.Equal(t, "file", attr(file, "class"))
	assert.Empty(t, attr(file, "data-on:drop__stop"), "files are not drop targets")

	for _, li := range items {
		assert.Equal(t, "true", attr(li, "draggable"))
	}
	assert.Contains(t, attr(file, "data-on:dragstart__stop"), `"notes.md"`)

	for _, b := range elements(doc, "button") {
		assert.NotContains(t, attr(b, "data-on:click"), "/files/move", "moves happen by dropping onto a folder")
	}
}

func TestRecordTable_ListEditor(t *testing.T) {
	records := []core.Record{
		core.NewRecord("1", core.Field{Name: "authors", Value: core.List("Doe, J.", "Smith, A.")}),
	}
	cols := []table.Column{{Name: "authors", Label: "Authors", Kind: core.KindList, Editable: true}}
	state := table.State{Page: 1, Edit: table.Begin(records[0])}
	view := table.BuildView(records, cols, state, 6)

	doc := parse(t, renderString(t, RecordTable(TableData{Base: "/publications", View: view})))

	areas := elements(doc, "textarea")
	require.Len(t, areas, 1)
	assert.Equal(t, "edited.authors", attr(areas[0], "data-bind"))
	require.NotNil(t, areas[0].FirstChild)
	assert.Equal(t, "Doe, J.\nSmith, A.", areas[0].FirstChild.Data)
}
