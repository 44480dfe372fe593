// Package table derives the display state of a searchable, paginated,
// inline-editable record table.
//
// Nothing here performs I/O. Callers pass the full collection on every
// render and wire the update, delete and reload callbacks to storage.
package table

import (
	"strings"
	"unicode"

	"github.com/spcai/labcms/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Column describes one table column.
type Column struct {
	Name     string
	Label    string
	Kind     core.ValueKind
	Editable bool
	// Image marks the avatar column rendered ahead of the others.
	Image bool
	// Options lists the allowed values of an enumerated text column.
	Options []string
}

var titleCaser = cases.Title(language.English)

// Label turns a field name into a column header: camelCase is split on
// capitals, underscores become spaces and each word is title-cased.
func Label(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_':
			b.WriteRune(' ')
		case unicode.IsUpper(r) && i > 0:
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return titleCaser.String(strings.Join(strings.Fields(b.String()), " "))
}

// DeriveColumns builds columns from the keys of the first record, in order,
// without the id. Later records never change the column set. The first
// column whose name contains "image" becomes the avatar column.
func DeriveColumns(records []core.Record) []Column {
	if len(records) == 0 {
		return nil
	}

	first := records[0]
	var cols []Column
	imageSeen := false
	for _, f := range first.Fields {
		if f.Name == core.IDColumn {
			continue
		}
		kind := f.Value.Kind()
		if kind == core.KindNull {
			kind = core.KindString
		}
		col := Column{
			Name:     f.Name,
			Label:    Label(f.Name),
			Kind:     kind,
			Editable: true,
		}
		if !imageSeen && strings.Contains(strings.ToLower(f.Name), "image") {
			col.Image = true
			col.Editable = false
			imageSeen = true
		}
		cols = append(cols, col)
	}
	return cols
}

// SplitImage separates the avatar column from the regular ones.
func SplitImage(cols []Column) (*Column, []Column) {
	var image *Column
	rest := make([]Column, 0, len(cols))
	for i := range cols {
		if cols[i].Image && image == nil {
			c := cols[i]
			image = &c
			continue
		}
		rest = append(rest, cols[i])
	}
	return image, rest
}

// Lookup returns the column named name.
func Lookup(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
