package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

type contentFieldsTable struct {
	c *conn
}

const contentFieldColumns = "id, content_type_id, name, field_key, field_type, required, options, position"

func hydrateContentField(row rowScanner) (*types.ContentField, error) {
	var (
		f       types.ContentField
		options sql.NullString
	)
	if err := row.Scan(&f.ID, &f.ContentTypeID, &f.Name, &f.Key, &f.Type, &f.Required, &options, &f.Order); err != nil {
		return nil, err
	}
	if options.Valid && options.String != "" {
		f.Options = json.RawMessage(options.String)
	}
	return &f, nil
}

// List returns the type's fields by position.
func (t *contentFieldsTable) List(ctx context.Context, typeID string) ([]*types.ContentField, error) {
	rows, err := t.c.query(ctx,
		"SELECT "+contentFieldColumns+" FROM content_fields WHERE content_type_id = ? ORDER BY position, id",
		typeID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing content fields: %w", err)
	}
	defer rows.Close()

	var out []*types.ContentField
	for rows.Next() {
		f, err := hydrateContentField(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning content field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Upsert inserts f or updates the row with f's id. An id owned by another
// content type is left untouched and reported as ErrFieldNotFound.
func (t *contentFieldsTable) Upsert(ctx context.Context, f *types.ContentField) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	res, err := t.c.exec(ctx,
		"INSERT INTO content_fields ("+contentFieldColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT (id) DO UPDATE SET name = excluded.name, field_key = excluded.field_key, "+
			"field_type = excluded.field_type, required = excluded.required, "+
			"options = excluded.options, position = excluded.position "+
			"WHERE content_fields.content_type_id = excluded.content_type_id",
		f.ID, f.ContentTypeID, f.Name, f.Key, f.Type, f.Required, nullBytes(f.Options), f.Order,
	)
	if err != nil {
		return fmt.Errorf("upserting content field: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	} else if n == 0 {
		return types.ErrFieldNotFound
	}
	return nil
}

func (t *contentFieldsTable) Delete(ctx context.Context, typeID, fieldID string) error {
	err := t.c.execOne(ctx,
		"DELETE FROM content_fields WHERE content_type_id = ? AND id = ?", typeID, fieldID)
	if err == types.ErrNotFound {
		return types.ErrFieldNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting content field: %w", err)
	}
	return nil
}
