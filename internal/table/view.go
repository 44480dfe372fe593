package table

import (
	"strings"

	"github.com/spcai/labcms/pkg/core"
)

// DefaultItemsPerPage is the page size when none is configured.
const DefaultItemsPerPage = 6

// EmptyMessage is shown instead of the table when there are no records.
const EmptyMessage = "No data available"

// Filter keeps the records with term in the string form of a truthy non-id
// field, ignoring case. An empty term returns records unchanged.
func Filter(records []core.Record, term string) []core.Record {
	if term == "" {
		return records
	}
	needle := strings.ToLower(term)
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if matches(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r core.Record, needle string) bool {
	for _, f := range r.Fields {
		if f.Name == core.IDColumn || !f.Value.Truthy() {
			continue
		}
		if strings.Contains(strings.ToLower(f.Value.String()), needle) {
			return true
		}
	}
	return false
}

// TotalPages returns ceil(n/perPage).
func TotalPages(n, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	return (n + perPage - 1) / perPage
}

// ClampPage keeps page within [1, max(total, 1)].
func ClampPage(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// Paginate returns the records on page, counted from 1, and the total page
// count.
func Paginate(records []core.Record, page, perPage int) ([]core.Record, int) {
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	total := TotalPages(len(records), perPage)
	page = ClampPage(page, total)
	start := (page - 1) * perPage
	if start >= len(records) {
		return nil, total
	}
	end := min(start+perPage, len(records))
	return records[start:end], total
}

// State is the per-client table state carried between requests.
type State struct {
	Search        string
	Page          int
	Edit          *EditSession
	PendingDelete string
}

// RowCell pairs a column with the value rendered for it.
type RowCell struct {
	Column Column
	Cell   Cell
	// Input is the working value shown while the row is being edited.
	Input string
}

// Row is one displayed record.
type Row struct {
	ID            string
	ImageSrc      string
	ImageFallback string
	Cells         []RowCell
	Editing       bool
	PendingDelete bool
	Record        core.Record
}

// View is everything needed to draw the table.
type View struct {
	Columns    []Column
	Image      *Column
	Rows       []Row
	Search     string
	Page       int
	TotalPages int
	Filtered   int
	Empty      bool
	EditingID  string
	PendingID  string
}

// HasPrev reports whether a previous page exists.
func (v View) HasPrev() bool { return v.Page > 1 }

// HasNext reports whether a next page exists.
func (v View) HasNext() bool { return v.Page < v.TotalPages }

// BuildView derives the display state from the full collection. Columns are
// derived from the first record when cols is empty.
func BuildView(records []core.Record, cols []Column, state State, perPage int) View {
	if len(records) == 0 {
		return View{Empty: true, Search: state.Search, Page: 1}
	}
	if len(cols) == 0 {
		cols = DeriveColumns(records)
	}
	image, rest := SplitImage(cols)

	filtered := Filter(records, state.Search)
	pageRecords, total := Paginate(filtered, state.Page, perPage)

	v := View{
		Columns:    rest,
		Image:      image,
		Search:     state.Search,
		Page:       ClampPage(state.Page, total),
		TotalPages: total,
		Filtered:   len(filtered),
		PendingID:  state.PendingDelete,
	}
	if state.Edit != nil {
		v.EditingID = state.Edit.EditingID
	}

	for _, r := range pageRecords {
		row := Row{
			ID:            r.ID,
			Editing:       state.Edit != nil && state.Edit.EditingID == r.ID,
			PendingDelete: state.PendingDelete != "" && state.PendingDelete == r.ID,
			Record:        r,
		}
		if image != nil {
			row.ImageSrc = r.Value(image.Name).String()
			row.ImageFallback = AvatarFallback(row.ImageSrc)
		}
		for _, c := range rest {
			val := r.Value(c.Name)
			rc := RowCell{Column: c, Cell: RenderCell(c.Name, val)}
			if row.Editing {
				rc.Input = state.Edit.Value(c.Name)
			}
			row.Cells = append(row.Cells, rc)
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}
