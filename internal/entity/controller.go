package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spcai/labcms/pkg/core"
)

// ImageUpload is an image submitted with an add form.
type ImageUpload struct {
	Filename string
	Data     []byte
}

func (u *ImageUpload) empty() bool {
	return u == nil || u.Filename == "" || len(u.Data) == 0
}

// Controller persists one entity type through the platform.
type Controller[T Entity] struct {
	desc     Descriptor
	platform core.Platform
	decode   func(core.Record) T
	fromForm func(url.Values) T
	logger   *slog.Logger
	newName  func() string
}

// NewController creates a controller for the table described by desc.
func NewController[T Entity](desc Descriptor, platform core.Platform, decode func(core.Record) T, fromForm func(url.Values) T, logger *slog.Logger) *Controller[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller[T]{
		desc:     desc,
		platform: platform,
		decode:   decode,
		fromForm: fromForm,
		logger:   logger.With(slog.String("table", desc.Table)),
		newName:  uuid.NewString,
	}
}

// Descriptor returns the table descriptor.
func (c *Controller[T]) Descriptor() Descriptor { return c.desc }

// Records fetches the full collection as rows.
func (c *Controller[T]) Records(ctx context.Context) ([]core.Record, error) {
	rows, err := c.platform.Rows.Select(ctx, c.desc.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.desc.Table, err)
	}
	return rows, nil
}

// List fetches the full collection.
func (c *Controller[T]) List(ctx context.Context) ([]T, error) {
	rows, err := c.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = c.decode(r)
	}
	return out, nil
}

// Get fetches one entity by id.
func (c *Controller[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	rec, err := c.fetch(ctx, id)
	if err != nil {
		return zero, err
	}
	return c.decode(rec), nil
}

func (c *Controller[T]) fetch(ctx context.Context, id string) (core.Record, error) {
	rows, err := c.platform.Rows.Select(ctx, c.desc.Table, core.ByID(id))
	if err != nil {
		return core.Record{}, fmt.Errorf("failed to fetch %s: %w", c.desc.Singular, err)
	}
	if len(rows) == 0 {
		return core.Record{}, fmt.Errorf("%s %s: %w", c.desc.Singular, id, core.ErrNotFound)
	}
	return rows[0], nil
}

// AddForm validates and inserts an entity read from an add form.
func (c *Controller[T]) AddForm(ctx context.Context, form url.Values, img *ImageUpload) error {
	_, err := c.Add(ctx, c.fromForm(form), img)
	return err
}

// Add inserts e. When an image is given it is uploaded first and its public
// URL stored with the row; a failed insert removes the uploaded image again.
func (c *Controller[T]) Add(ctx context.Context, e T, img *ImageUpload) (T, error) {
	var zero T
	if err := e.Validate(); err != nil {
		return zero, err
	}
	rec := e.ToRecord()

	var uploaded string
	if c.desc.HasImage() && !img.empty() {
		stored, err := c.platform.Blobs.Upload(ctx, c.imagePath(img.Filename), img.Data)
		if err != nil {
			return zero, fmt.Errorf("failed to upload image: %w", err)
		}
		uploaded = stored
		rec.Set(ImageColumn, core.Text(c.platform.Blobs.PublicURL(stored)))
	}

	inserted, err := c.platform.Rows.Insert(ctx, c.desc.Table, rec)
	if err != nil {
		err = fmt.Errorf("failed to add %s: %w", c.desc.Singular, err)
		if uploaded != "" {
			if rmErr := c.platform.Blobs.Remove(ctx, []string{uploaded}); rmErr != nil {
				c.logger.Error("failed to remove orphaned image",
					slog.String("path", uploaded), slog.Any("error", rmErr))
				err = errors.Join(err, fmt.Errorf("failed to remove uploaded image %s: %w", uploaded, rmErr))
			}
		}
		return zero, err
	}

	c.logger.Info("added", slog.String("id", inserted.ID))
	return c.decode(inserted), nil
}

// imagePath names an uploaded image <folder>/<uuid>.<ext>.
func (c *Controller[T]) imagePath(filename string) string {
	name := c.newName()
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		name += "." + ext
	}
	return c.desc.ImageFolder + "/" + name
}

// Update applies the directives to the row id in a single update. Later
// directives for the same column win.
func (c *Controller[T]) Update(ctx context.Context, id string, directives []core.UpdateDirective) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}

	partial := core.Record{ID: id}
	for _, d := range directives {
		partial.Set(d.Column, d.Value)
	}
	partial.ID = id
	partial.Delete(core.IDColumn)

	if c.desc.Table == Publications.Table {
		month, hasMonth := partial.Get("month")
		year, hasYear := partial.Get("year")
		if hasMonth && hasYear && month.Truthy() && year.Truthy() {
			if err := ValidateMonthYear(month.String(), year.String()); err != nil {
				return err
			}
			partial.Set("date", core.Text(FormatDate(month.String(), year.String())))
		}
		partial.Delete("month")
		partial.Delete("year")
	}

	for _, f := range partial.Fields {
		if _, ok := c.desc.Column(f.Name); !ok {
			return fmt.Errorf("%w: unknown column %q", ErrValidation, f.Name)
		}
		if f.Name == c.desc.Required && !f.Value.Truthy() {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.Name)
		}
	}
	if len(partial.Fields) == 0 {
		return nil
	}

	if err := c.platform.Rows.Update(ctx, c.desc.Table, partial, core.ByID(id)); err != nil {
		return fmt.Errorf("failed to update %s: %w", c.desc.Singular, err)
	}
	c.logger.Info("updated", slog.String("id", id), slog.Int("fields", len(partial.Fields)))
	return nil
}

// Delete removes the row id and its image. The image is stashed before it
// is removed so it can be restored when deleting the row fails. Image URLs
// outside the public bucket are left alone.
func (c *Controller[T]) Delete(ctx context.Context, id string) error {
	rec, err := c.fetch(ctx, id)
	if err != nil {
		return err
	}

	var (
		imagePath string
		stash     []byte
	)
	if c.desc.HasImage() {
		if p, ok := core.ParseStoragePath(rec.Value(ImageColumn).String(), c.platform.Blobs.Bucket()); ok {
			data, err := c.platform.Blobs.Download(ctx, p)
			switch {
			case errors.Is(err, core.ErrNotFound):
				c.logger.Warn("image already missing", slog.String("path", p))
			case err != nil:
				return fmt.Errorf("failed to read image: %w", err)
			default:
				imagePath, stash = p, data
			}
		}
	}

	if imagePath != "" {
		if err := c.platform.Blobs.Remove(ctx, []string{imagePath}); err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
	}

	if err := c.platform.Rows.Delete(ctx, c.desc.Table, core.ByID(id)); err != nil {
		err = fmt.Errorf("failed to delete %s: %w", c.desc.Singular, err)
		if imagePath != "" {
			if _, upErr := c.platform.Blobs.Upload(ctx, imagePath, stash); upErr != nil {
				c.logger.Error("failed to restore image",
					slog.String("path", imagePath), slog.Any("error", upErr))
				err = errors.Join(err, fmt.Errorf("failed to restore image %s: %w", imagePath, upErr))
			}
		}
		return err
	}

	c.logger.Info("deleted", slog.String("id", id))
	return nil
}
