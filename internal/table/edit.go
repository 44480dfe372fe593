package table

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spcai/labcms/pkg/core"
)

// EditSession is the working copy of the one row being edited.
type EditSession struct {
	EditingID string            `json:"editing"`
	Edited    map[string]string `json:"edited"`
	Updated   []string          `json:"updated"`
}

// ListSeparator joins the items of a list field while it is edited. Items
// may contain commas, so lists are edited one item per line.
const ListSeparator = "\n"

// Begin snapshots the string form of every field of rec. Starting a new
// session discards any previous one.
func Begin(rec core.Record) *EditSession {
	s := &EditSession{
		EditingID: rec.ID,
		Edited:    make(map[string]string, len(rec.Fields)),
	}
	for _, f := range rec.Fields {
		if f.Name == core.IDColumn {
			continue
		}
		if f.Value.Kind() == core.KindList {
			s.Edited[f.Name] = strings.Join(f.Value.AsList(), ListSeparator)
			continue
		}
		s.Edited[f.Name] = f.Value.String()
	}
	return s
}

// Value returns the working value of field.
func (s *EditSession) Value(field string) string {
	if s == nil {
		return ""
	}
	return s.Edited[field]
}

// Change records a new working value. Each field is tracked once, in the
// order it was first changed.
func (s *EditSession) Change(field, value string) {
	if s.Edited == nil {
		s.Edited = make(map[string]string)
	}
	s.Edited[field] = value
	for _, u := range s.Updated {
		if u == field {
			return
		}
	}
	s.Updated = append(s.Updated, field)
}

// Directives builds one update directive per changed field, conditioned on
// the row id. Values are coerced to the kind of their column when cols
// knows it.
func (s *EditSession) Directives(cols []Column) []core.UpdateDirective {
	if s == nil {
		return nil
	}
	out := make([]core.UpdateDirective, 0, len(s.Updated))
	for _, field := range s.Updated {
		raw := s.Edited[field]
		v := core.Text(raw)
		if col, ok := Lookup(cols, field); ok {
			v = Coerce(col, raw)
		}
		out = append(out, core.UpdateDirective{
			Column:          field,
			Value:           v,
			ConditionColumn: core.IDColumn,
			ConditionValue:  core.Text(s.EditingID),
		})
	}
	return out
}

// Coerce converts an edited string back to the kind of col.
func Coerce(col Column, raw string) core.Value {
	switch col.Kind {
	case core.KindBool:
		return core.Bool(strings.EqualFold(strings.TrimSpace(raw), "true"))
	case core.KindList:
		return core.List(SplitList(raw)...)
	default:
		return core.Text(raw)
	}
}

// SplitList splits a list edited one item per line, trimming items and
// dropping blank lines.
func SplitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(strings.ReplaceAll(raw, "\r\n", ListSeparator), ListSeparator) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Callbacks connect the table to storage.
type Callbacks struct {
	OnUpdate func(ctx context.Context, directives []core.UpdateDirective, rec core.Record) error
	OnDelete func(ctx context.Context, rec core.Record) error
	OnReload func(ctx context.Context) error
}

// Save sends the changed fields of s and then reloads. The session always
// ends, whatever the outcome, so callers drop it after Save returns.
func Save(ctx context.Context, s *EditSession, records []core.Record, cols []Column, cb Callbacks) error {
	if s == nil || s.EditingID == "" || cb.OnUpdate == nil {
		return nil
	}

	rec, _ := find(records, s.EditingID)
	for name, val := range s.Edited {
		if col, ok := Lookup(cols, name); ok {
			rec.Set(name, Coerce(col, val))
		} else {
			rec.Set(name, core.Text(val))
		}
	}
	rec.ID = s.EditingID

	var errs []error
	if err := cb.OnUpdate(ctx, s.Directives(cols), rec); err != nil {
		errs = append(errs, err)
	}
	if cb.OnReload != nil {
		if err := cb.OnReload(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Confirm deletes the pending record and reloads only when the delete
// succeeds. Errors are returned to the caller as is, without retry.
func Confirm(ctx context.Context, pendingID string, records []core.Record, cb Callbacks) error {
	if pendingID == "" {
		return nil
	}
	if cb.OnDelete == nil {
		return fmt.Errorf("delete is not supported")
	}
	rec, ok := find(records, pendingID)
	if !ok {
		return fmt.Errorf("record %s: %w", pendingID, core.ErrNotFound)
	}
	if err := cb.OnDelete(ctx, rec); err != nil {
		return err
	}
	if cb.OnReload != nil {
		return cb.OnReload(ctx)
	}
	return nil
}

func find(records []core.Record, id string) (core.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return core.Record{ID: id}, false
}
