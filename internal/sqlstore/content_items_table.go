package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

type contentItemsTable struct {
	c *conn
}

const contentItemColumns = "id, content_type_id, data, published, version, created_at, updated_at"

func hydrateContentItem(row rowScanner) (*types.ContentItem, error) {
	var (
		item             types.ContentItem
		data             string
		created, updated string
	)
	if err := row.Scan(&item.ID, &item.ContentTypeID, &data, &item.Published, &item.Version, &created, &updated); err != nil {
		return nil, err
	}
	item.RawData = []byte(data)
	var err error
	if item.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if item.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &item, nil
}

func (t *contentItemsTable) Create(ctx context.Context, item *types.ContentItem) error {
	if item.ID == "" {
		item.ID = generateUUID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now()
	}
	item.UpdatedAt = item.CreatedAt
	item.Version = 1
	_, err := t.c.exec(ctx,
		"INSERT INTO content_items ("+contentItemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.ContentTypeID, string(item.RawData), item.Published, item.Version,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	return t.c.insertErr(err, types.ErrConflict, "content item")
}

func (t *contentItemsTable) Get(ctx context.Context, id string) (*types.ContentItem, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	item, err := hydrateContentItem(t.c.queryRow(ctx,
		"SELECT "+contentItemColumns+" FROM content_items WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting content item: %w", err)
	}
	return item, nil
}

// List returns the type's items newest first.
func (t *contentItemsTable) List(ctx context.Context, typeID string, publishedOnly bool) ([]*types.ContentItem, error) {
	query := "SELECT " + contentItemColumns + " FROM content_items WHERE content_type_id = ?"
	args := []any{typeID}
	if publishedOnly {
		query += " AND published = ?"
		args = append(args, true)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := t.c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing content items: %w", err)
	}
	defer rows.Close()

	var out []*types.ContentItem
	for rows.Next() {
		item, err := hydrateContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning content item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Update overwrites data and published and bumps the version.
func (t *contentItemsTable) Update(ctx context.Context, item *types.ContentItem, expected int64) error {
	var current int64
	err := t.c.queryRow(ctx, "SELECT version FROM content_items WHERE id = ?", item.ID).Scan(&current)
	if err == sql.ErrNoRows {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading content item version: %w", err)
	}
	if expected != 0 && expected != current {
		return types.ErrStaleVersion
	}

	ts := now()
	res, err := t.c.exec(ctx,
		"UPDATE content_items SET data = ?, published = ?, version = ?, updated_at = ? "+
			"WHERE id = ? AND version = ?",
		string(item.RawData), item.Published, current+1, formatTime(ts), item.ID, current,
	)
	if err != nil {
		return fmt.Errorf("updating content item: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	} else if n == 0 {
		return types.ErrStaleVersion
	}
	item.Version = current + 1
	item.UpdatedAt = ts
	return nil
}

func (t *contentItemsTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	err := t.c.execOne(ctx, "DELETE FROM content_items WHERE id = ?", id)
	if err != nil && err != types.ErrNotFound {
		return fmt.Errorf("deleting content item: %w", err)
	}
	return err
}
