// Package seed loads organizations, projects and content types from a YAML
// manifest. Applying a manifest twice creates nothing the second time:
// entities whose slug already exists are skipped.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pantry/internal/fieldtype"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/tenancy"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// ManifestVersion is the only manifest version understood.
const ManifestVersion = 1

// Manifest is the seed file layout.
type Manifest struct {
	Version       int            `yaml:"version"`
	Organizations []Organization `yaml:"organizations"`
	GlobalTypes   []ContentType  `yaml:"globalContentTypes"`
}

// Organization seeds one organization. Owner becomes its first OWNER and
// acts for every write under it.
type Organization struct {
	Name     string    `yaml:"name"`
	Slug     string    `yaml:"slug"`
	Owner    string    `yaml:"owner"`
	Members  []Member  `yaml:"members"`
	Projects []Project `yaml:"projects"`
}

// Member seeds one membership.
type Member struct {
	User string `yaml:"user"`
	Role string `yaml:"role"`
}

// Project seeds one project and its content types.
type Project struct {
	Name         string        `yaml:"name"`
	Slug         string        `yaml:"slug"`
	Description  string        `yaml:"description"`
	ContentTypes []ContentType `yaml:"contentTypes"`
}

// ContentType seeds one content type with its fields in order.
type ContentType struct {
	Name        string  `yaml:"name"`
	Slug        string  `yaml:"slug"`
	Description string  `yaml:"description"`
	Fields      []Field `yaml:"fields"`
}

// Field seeds one field. Options is re-encoded as JSON.
type Field struct {
	Name     string         `yaml:"name"`
	Key      string         `yaml:"key"`
	Type     string         `yaml:"type"`
	Required bool           `yaml:"required"`
	Options  map[string]any `yaml:"options"`
}

// Manifest errors.
var (
	ErrUnsupportedVersion = errors.New("seed: unsupported manifest version")
	ErrMissingOwner       = errors.New("seed: organization owner is required")
)

// Parse decodes a manifest.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	for _, org := range m.Organizations {
		if org.Owner == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingOwner, org.Slug)
		}
	}
	return &m, nil
}

// ParseFile decodes the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Report counts what Apply created and skipped.
type Report struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Seeder applies manifests.
type Seeder struct {
	store    types.Cupboard
	tenancy  *tenancy.Service
	registry *registry.Registry
	fields   *fieldtype.Validator
	log      zerolog.Logger
}

// New returns a Seeder writing through the tenancy service and registry.
func New(store types.Cupboard, t *tenancy.Service, r *registry.Registry, log zerolog.Logger) *Seeder {
	return &Seeder{store: store, tenancy: t, registry: r, fields: fieldtype.New(), log: log}
}

// Apply creates everything in m that does not exist yet.
func (s *Seeder) Apply(ctx context.Context, m *Manifest) (Report, error) {
	var rep Report
	for _, o := range m.Organizations {
		if err := s.organization(ctx, o, &rep); err != nil {
			return rep, fmt.Errorf("organization %s: %w", o.Slug, err)
		}
	}
	for _, ct := range m.GlobalTypes {
		if err := s.contentType(ctx, "", ct, &rep); err != nil {
			return rep, fmt.Errorf("global content type %s: %w", ct.Slug, err)
		}
	}
	s.log.Info().Int("created", rep.Created).Int("skipped", rep.Skipped).Msg("seed applied")
	return rep, nil
}

func (s *Seeder) organization(ctx context.Context, o Organization, rep *Report) error {
	org, err := s.store.Organizations().GetBySlug(ctx, o.Slug)
	switch {
	case err == nil:
		rep.Skipped++
	case errors.Is(err, types.ErrNotFound):
		if org, err = s.tenancy.CreateOrganization(ctx, o.Owner, o.Name, o.Slug); err != nil {
			return err
		}
		rep.Created++
	default:
		return err
	}

	for _, mem := range o.Members {
		_, err := s.tenancy.AddMember(ctx, o.Owner, org.ID, mem.User, mem.Role)
		switch {
		case err == nil:
			rep.Created++
		case errors.Is(err, types.ErrDuplicateMember):
			rep.Skipped++
		default:
			return fmt.Errorf("member %s: %w", mem.User, err)
		}
	}

	for _, p := range o.Projects {
		if err := s.project(ctx, o.Owner, org.ID, p, rep); err != nil {
			return fmt.Errorf("project %s: %w", p.Slug, err)
		}
	}
	return nil
}

func (s *Seeder) project(ctx context.Context, actor, orgID string, p Project, rep *Report) error {
	project, err := s.store.Projects().GetBySlug(ctx, p.Slug)
	switch {
	case err == nil:
		if project.OrganizationID != orgID {
			return types.ErrDuplicateSlug
		}
		rep.Skipped++
	case errors.Is(err, types.ErrNotFound):
		if project, err = s.tenancy.CreateProject(ctx, actor, orgID, p.Name, p.Slug, p.Description); err != nil {
			return err
		}
		rep.Created++
	default:
		return err
	}
	for _, ct := range p.ContentTypes {
		if err := s.contentType(ctx, project.ID, ct, rep); err != nil {
			return fmt.Errorf("content type %s: %w", ct.Slug, err)
		}
	}
	return nil
}

func (s *Seeder) contentType(ctx context.Context, projectID string, c ContentType, rep *Report) error {
	_, err := s.registry.TypeBySlug(ctx, projectID, c.Slug)
	if err == nil {
		rep.Skipped++
		return nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return err
	}

	fields := make([]*types.ContentField, 0, len(c.Fields))
	for _, f := range c.Fields {
		field := &types.ContentField{Name: f.Name, Key: f.Key, Type: f.Type, Required: f.Required}
		if len(f.Options) > 0 {
			raw, err := json.Marshal(f.Options)
			if err != nil {
				return fmt.Errorf("field %s options: %w", f.Key, err)
			}
			field.Options = raw
		}
		if err := s.fields.CheckField(field); err != nil {
			return fmt.Errorf("field %s: %w", f.Key, err)
		}
		fields = append(fields, field)
	}

	ct, err := s.registry.CreateType(ctx, projectID, c.Name, c.Slug, c.Description)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		v := ct.Version
		if _, err := s.registry.UpdateType(ctx, ct.ID, &types.ContentTypeUpdate{Fields: fields, Version: &v}); err != nil {
			return err
		}
	}
	rep.Created++
	return nil
}
