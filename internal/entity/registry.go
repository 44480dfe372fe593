package entity

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/spcai/labcms/pkg/core"
)

// Service is the untyped view of a controller used by the web UI and CLI.
type Service interface {
	Descriptor() Descriptor
	Records(ctx context.Context) ([]core.Record, error)
	AddForm(ctx context.Context, form url.Values, img *ImageUpload) error
	Update(ctx context.Context, id string, directives []core.UpdateDirective) error
	Delete(ctx context.Context, id string) error
}

// Registry holds one controller per content table.
type Registry struct {
	Affiliations *Controller[Affiliation]
	Faculty      *Controller[Faculty]
	Members      *Controller[Member]
	Projects     *Controller[Project]
	Publications *Controller[Publication]
}

// NewRegistry creates the controllers over platform.
func NewRegistry(platform core.Platform, logger *slog.Logger) *Registry {
	return &Registry{
		Affiliations: NewController(Affiliations, platform, AffiliationFromRecord, AffiliationFromForm, logger),
		Faculty:      NewController(FacultyTable, platform, FacultyFromRecord, FacultyFromForm, logger),
		Members:      NewController(Members, platform, MemberFromRecord, MemberFromForm, logger),
		Projects:     NewController(Projects, platform, ProjectFromRecord, ProjectFromForm, logger),
		Publications: NewController(Publications, platform, PublicationFromRecord, PublicationFromForm, logger),
	}
}

// Services returns the controllers in navigation order.
func (r *Registry) Services() []Service {
	return []Service{r.Affiliations, r.Faculty, r.Members, r.Projects, r.Publications}
}

// Lookup returns the controller of table.
func (r *Registry) Lookup(table string) (Service, bool) {
	for _, s := range r.Services() {
		if s.Descriptor().Table == table {
			return s, true
		}
	}
	return nil, false
}

// Tables returns the table names in navigation order.
func (r *Registry) Tables() []string {
	var names []string
	for _, s := range r.Services() {
		names = append(names, s.Descriptor().Table)
	}
	return names
}
