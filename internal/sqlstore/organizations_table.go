package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

type organizationsTable struct {
	c *conn
}

const orgColumns = "id, name, slug, created_at"

func hydrateOrganization(row rowScanner) (*types.Organization, error) {
	var (
		org     types.Organization
		created string
	)
	if err := row.Scan(&org.ID, &org.Name, &org.Slug, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	org.CreatedAt = t
	return &org, nil
}

func (t *organizationsTable) Create(ctx context.Context, org *types.Organization) error {
	if org.ID == "" {
		org.ID = generateUUID()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now()
	}
	_, err := t.c.exec(ctx,
		"INSERT INTO organizations ("+orgColumns+") VALUES (?, ?, ?, ?)",
		org.ID, org.Name, org.Slug, formatTime(org.CreatedAt),
	)
	return t.c.insertErr(err, types.ErrDuplicateSlug, "organization")
}

func (t *organizationsTable) get(ctx context.Context, where string, arg any) (*types.Organization, error) {
	org, err := hydrateOrganization(t.c.queryRow(ctx,
		"SELECT "+orgColumns+" FROM organizations WHERE "+where+" = ?", arg))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	return org, nil
}

func (t *organizationsTable) Get(ctx context.Context, id string) (*types.Organization, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	return t.get(ctx, "id", id)
}

func (t *organizationsTable) GetBySlug(ctx context.Context, slug string) (*types.Organization, error) {
	return t.get(ctx, "slug", slug)
}

func (t *organizationsTable) ListForUser(ctx context.Context, userID string) ([]*types.Organization, error) {
	rows, err := t.c.query(ctx,
		"SELECT o.id, o.name, o.slug, o.created_at FROM organizations o "+
			"JOIN memberships m ON m.organization_id = o.id "+
			"WHERE m.user_id = ? ORDER BY o.created_at DESC, o.id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	defer rows.Close()

	var out []*types.Organization
	for rows.Next() {
		org, err := hydrateOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning organization: %w", err)
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// Delete removes the organization with its projects, their content, and
// its memberships.
func (t *organizationsTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if err := deleteOrganizationContent(ctx, t.c, id); err != nil {
		return err
	}
	if err := t.c.execOne(ctx, "DELETE FROM organizations WHERE id = ?", id); err != nil {
		if err == types.ErrNotFound {
			return err
		}
		return fmt.Errorf("deleting organization: %w", err)
	}
	return nil
}
