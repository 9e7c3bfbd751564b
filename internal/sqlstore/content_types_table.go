package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

type contentTypesTable struct {
	c *conn
}

const contentTypeColumns = "id, name, slug, description, project_id, version, created_at, updated_at"

func hydrateContentType(row rowScanner, extra ...any) (*types.ContentType, error) {
	var (
		ct               types.ContentType
		created, updated string
	)
	dest := append([]any{
		&ct.ID, &ct.Name, &ct.Slug, &ct.Description, &ct.ProjectID, &ct.Version, &created, &updated,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	var err error
	if ct.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if ct.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &ct, nil
}

// Create inserts ct with version 1. A global type has an empty ProjectID.
func (t *contentTypesTable) Create(ctx context.Context, ct *types.ContentType) error {
	if ct.ID == "" {
		ct.ID = generateUUID()
	}
	ts := now()
	if ct.CreatedAt.IsZero() {
		ct.CreatedAt = ts
	}
	ct.UpdatedAt = ct.CreatedAt
	ct.Version = 1
	_, err := t.c.exec(ctx,
		"INSERT INTO content_types ("+contentTypeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		ct.ID, ct.Name, ct.Slug, ct.Description, ct.ProjectID, ct.Version,
		formatTime(ct.CreatedAt), formatTime(ct.UpdatedAt),
	)
	return t.c.insertErr(err, types.ErrDuplicateSlug, "content type")
}

func (t *contentTypesTable) one(ctx context.Context, query string, args ...any) (*types.ContentType, error) {
	ct, err := hydrateContentType(t.c.queryRow(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting content type: %w", err)
	}
	return ct, nil
}

func (t *contentTypesTable) Get(ctx context.Context, id string) (*types.ContentType, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	return t.one(ctx, "SELECT "+contentTypeColumns+" FROM content_types WHERE id = ?", id)
}

func (t *contentTypesTable) GetBySlug(ctx context.Context, projectID, slug string) (*types.ContentType, error) {
	return t.one(ctx,
		"SELECT "+contentTypeColumns+" FROM content_types WHERE project_id = ? AND slug = ?",
		projectID, slug,
	)
}

func (t *contentTypesTable) SlugTaken(ctx context.Context, projectID, slug string) (bool, error) {
	ok, err := t.c.exists(ctx,
		"SELECT 1 FROM content_types WHERE project_id = ? AND slug = ?", projectID, slug)
	if err != nil {
		return false, fmt.Errorf("checking content type slug: %w", err)
	}
	return ok, nil
}

func (t *contentTypesTable) SlugTakenAnywhere(ctx context.Context, slug string) (bool, error) {
	ok, err := t.c.exists(ctx, "SELECT 1 FROM content_types WHERE slug = ?", slug)
	if err != nil {
		return false, fmt.Errorf("checking content type slug: %w", err)
	}
	return ok, nil
}

// List returns the project's types newest first, each with its item count.
func (t *contentTypesTable) List(ctx context.Context, projectID string) ([]*types.ContentType, error) {
	rows, err := t.c.query(ctx,
		"SELECT "+contentTypeColumns+", "+
			"(SELECT COUNT(*) FROM content_items i WHERE i.content_type_id = content_types.id) "+
			"FROM content_types WHERE project_id = ? ORDER BY created_at DESC, id DESC",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing content types: %w", err)
	}
	defer rows.Close()

	var out []*types.ContentType
	for rows.Next() {
		var count int
		ct, err := hydrateContentType(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scanning content type: %w", err)
		}
		ct.Count = &types.TypeCount{Items: count}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// Update writes name and description and bumps the version. On success ct
// carries the new version and updatedAt.
func (t *contentTypesTable) Update(ctx context.Context, ct *types.ContentType, expected int64) error {
	var current int64
	err := t.c.queryRow(ctx, "SELECT version FROM content_types WHERE id = ?", ct.ID).Scan(&current)
	if err == sql.ErrNoRows {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading content type version: %w", err)
	}
	if expected != 0 && expected != current {
		return types.ErrStaleVersion
	}

	ts := now()
	res, err := t.c.exec(ctx,
		"UPDATE content_types SET name = ?, description = ?, version = ?, updated_at = ? "+
			"WHERE id = ? AND version = ?",
		ct.Name, ct.Description, current+1, formatTime(ts), ct.ID, current,
	)
	if err != nil {
		return fmt.Errorf("updating content type: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	} else if n == 0 {
		return types.ErrStaleVersion
	}
	ct.Version = current + 1
	ct.UpdatedAt = ts
	return nil
}

// Delete removes the type with its fields and items.
func (t *contentTypesTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if err := deleteTypeContent(ctx, t.c, id); err != nil {
		return err
	}
	if err := t.c.execOne(ctx, "DELETE FROM content_types WHERE id = ?", id); err != nil {
		if err == types.ErrNotFound {
			return err
		}
		return fmt.Errorf("deleting content type: %w", err)
	}
	return nil
}
