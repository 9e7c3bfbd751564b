package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

type projectsTable struct {
	c *conn
}

const projectColumns = "id, name, slug, organization_id, description, created_at, updated_at"

func hydrateProject(row rowScanner) (*types.Project, error) {
	var (
		p                types.Project
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.OrganizationID, &p.Description, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &p, nil
}

func (t *projectsTable) Create(ctx context.Context, p *types.Project) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	ts := now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ts
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	_, err := t.c.exec(ctx,
		"INSERT INTO projects ("+projectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, p.Slug, p.OrganizationID, p.Description,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	return t.c.insertErr(err, types.ErrDuplicateSlug, "project")
}

func (t *projectsTable) get(ctx context.Context, where string, arg any) (*types.Project, error) {
	p, err := hydrateProject(t.c.queryRow(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE "+where+" = ?", arg))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return p, nil
}

func (t *projectsTable) Get(ctx context.Context, id string) (*types.Project, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	return t.get(ctx, "id", id)
}

func (t *projectsTable) GetBySlug(ctx context.Context, slug string) (*types.Project, error) {
	return t.get(ctx, "slug", slug)
}

func (t *projectsTable) ListByOrganization(ctx context.Context, orgID string) ([]*types.Project, error) {
	rows, err := t.c.query(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE organization_id = ? ORDER BY created_at DESC, id DESC",
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []*types.Project
	for rows.Next() {
		p, err := hydrateProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes the project and every content type, field, item, post and
// blog it owns.
func (t *projectsTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if err := deleteProjectContent(ctx, t.c, id); err != nil {
		return err
	}
	if err := t.c.execOne(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		if err == types.ErrNotFound {
			return err
		}
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}
