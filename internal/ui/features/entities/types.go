// Package entities provides the record table page of each content table.
package entities

import (
	"fmt"

	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/table"
	"github.com/spcai/labcms/internal/ui/components"
	"github.com/spcai/labcms/pkg/core"
)

// maxUploadBytes bounds the multipart body of the add form.
const maxUploadBytes = 10 << 20

// TableSignals are the datastar signals of a record table page.
type TableSignals struct {
	Search        string            `json:"search"`
	Page          int               `json:"page"`
	Editing       string            `json:"editing"`
	Edited        map[string]string `json:"edited"`
	Updated       []string          `json:"updated"`
	PendingDelete string            `json:"pendingDelete"`
}

// initialSignals are the signals a page starts with.
func initialSignals() map[string]any {
	return map[string]any{
		"search":        "",
		"page":          1,
		"editing":       "",
		"edited":        map[string]string{},
		"updated":       []string{},
		"pendingDelete": "",
		"adding":        false,
	}
}

// session returns the edit session carried by the signals, or nil.
func (s TableSignals) session() *table.EditSession {
	if s.Editing == "" {
		return nil
	}
	edited := s.Edited
	if edited == nil {
		edited = map[string]string{}
	}
	return &table.EditSession{EditingID: s.Editing, Edited: edited, Updated: s.Updated}
}

func (s TableSignals) state() table.State {
	return table.State{
		Search:        s.Search,
		Page:          s.Page,
		Edit:          s.session(),
		PendingDelete: s.PendingDelete,
	}
}

// endEdit clears the edit session.
func (s *TableSignals) endEdit() {
	s.Editing = ""
	s.Updated = nil
}

// months are the options of the publication month picker.
var months = func() []string {
	out := make([]string, 12)
	for i := range out {
		out[i] = fmt.Sprintf("%02d", i+1)
	}
	return out
}()

// formFields lays out the add form of a table from its column descriptors.
func formFields(desc entity.Descriptor) []components.FormField {
	fields := make([]components.FormField, 0, len(desc.Columns))
	for _, c := range desc.Columns {
		f := components.FormField{
			Name:     c.Name,
			Label:    c.Label,
			Kind:     components.FieldText,
			Options:  c.Options,
			Required: c.Name == desc.Required,
		}
		switch {
		case c.Image:
			f.Kind = components.FieldFile
		case desc.Table == entity.Publications.Table && c.Name == "date":
			f.Kind = components.FieldMonthYear
			f.Options = months
			f.Required = true
		case c.Kind == core.KindBool:
			f.Kind = components.FieldCheckbox
		case c.Kind == core.KindList:
			f.Kind = components.FieldList
		case len(c.Options) > 0:
			f.Kind = components.FieldSelect
		case c.Name == "bio" || c.Name == "short_description":
			f.Kind = components.FieldTextArea
		}
		fields = append(fields, f)
	}
	return fields
}
