package table

import (
	"strings"

	"github.com/spcai/labcms/pkg/core"
)

// MaxCellLength is the number of runes shown before a text cell collapses.
const MaxCellLength = 40

// CellKind selects how a value is rendered.
type CellKind string

// Cell kinds, in the order RenderCell tries them.
const (
	CellChips   CellKind = "chips"
	CellBullets CellKind = "bullets"
	CellCheck   CellKind = "check"
	CellLink    CellKind = "link"
	CellText    CellKind = "text"
)

// Cell is the rendered form of one value.
type Cell struct {
	Kind    CellKind
	Text    string
	Items   []string
	Checked bool
	// Short is Text cut to MaxCellLength runes followed by "...", set only
	// when the text is longer than that.
	Short string
}

// Expandable reports whether the text cell has a collapsed form.
func (c Cell) Expandable() bool { return c.Short != "" }

// RenderCell applies the rendering policy for a value under header.
func RenderCell(header string, v core.Value) Cell {
	switch {
	case v.Kind() == core.KindList && header == "tags":
		return Cell{Kind: CellChips, Items: v.AsList()}
	case v.Kind() == core.KindList:
		return Cell{Kind: CellBullets, Items: v.AsList()}
	case v.Kind() == core.KindBool && strings.HasPrefix(header, "is_"):
		return Cell{Kind: CellCheck, Checked: v.AsBool()}
	case v.Kind() == core.KindString && strings.HasPrefix(v.AsString(), "http"):
		return Cell{Kind: CellLink, Text: v.AsString()}
	}
	return textCell(v.String())
}

func textCell(text string) Cell {
	c := Cell{Kind: CellText, Text: text}
	runes := []rune(text)
	if len(runes) > MaxCellLength {
		c.Short = string(runes[:MaxCellLength]) + "..."
	}
	return c
}

// AvatarFallback is the letter shown when an avatar image cannot load.
func AvatarFallback(src string) string {
	for _, r := range src {
		return string(r)
	}
	return "A"
}
