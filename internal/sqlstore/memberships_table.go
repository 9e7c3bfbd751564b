package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

type membershipsTable struct {
	c *conn
}

const membershipColumns = "id, organization_id, user_id, role, created_at"

func hydrateMembership(row rowScanner) (*types.Membership, error) {
	var (
		m       types.Membership
		created string
	)
	if err := row.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	m.CreatedAt = t
	return &m, nil
}

func (t *membershipsTable) Create(ctx context.Context, m *types.Membership) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	_, err := t.c.exec(ctx,
		"INSERT INTO memberships ("+membershipColumns+") VALUES (?, ?, ?, ?, ?)",
		m.ID, m.OrganizationID, m.UserID, m.Role, formatTime(m.CreatedAt),
	)
	return t.c.insertErr(err, types.ErrDuplicateMember, "membership")
}

func (t *membershipsTable) one(ctx context.Context, query string, args ...any) (*types.Membership, error) {
	m, err := hydrateMembership(t.c.queryRow(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting membership: %w", err)
	}
	return m, nil
}

func (t *membershipsTable) Get(ctx context.Context, id string) (*types.Membership, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	return t.one(ctx, "SELECT "+membershipColumns+" FROM memberships WHERE id = ?", id)
}

func (t *membershipsTable) Find(ctx context.Context, orgID, userID string) (*types.Membership, error) {
	return t.one(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE organization_id = ? AND user_id = ?",
		orgID, userID,
	)
}

func (t *membershipsTable) ListByOrganization(ctx context.Context, orgID string) ([]*types.Membership, error) {
	rows, err := t.c.query(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE organization_id = ? ORDER BY created_at, id",
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	var out []*types.Membership
	for rows.Next() {
		m, err := hydrateMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *membershipsTable) UpdateRole(ctx context.Context, id, role string) error {
	err := t.c.execOne(ctx, "UPDATE memberships SET role = ? WHERE id = ?", role, id)
	if err != nil && err != types.ErrNotFound {
		return fmt.Errorf("updating membership role: %w", err)
	}
	return err
}

func (t *membershipsTable) Delete(ctx context.Context, id string) error {
	err := t.c.execOne(ctx, "DELETE FROM memberships WHERE id = ?", id)
	if err != nil && err != types.ErrNotFound {
		return fmt.Errorf("deleting membership: %w", err)
	}
	return err
}

func (t *membershipsTable) CountRole(ctx context.Context, orgID, role string) (int, error) {
	var n int
	err := t.c.queryRow(ctx,
		"SELECT COUNT(*) FROM memberships WHERE organization_id = ? AND role = ?",
		orgID, role,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting memberships: %w", err)
	}
	return n, nil
}
