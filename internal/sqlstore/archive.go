package sqlstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// archiveTable describes one table in an export. Columns are listed so that
// records move between dialects: booleans are written as JSON booleans and
// integers as JSON numbers regardless of how the engine stores them.
type archiveTable struct {
	name    string
	columns []string
	bools   map[string]bool
	ints    map[string]bool
}

func (a archiveTable) file() string {
	return a.name + ".jsonl"
}

func cols(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// archiveTables is in dependency order; import inserts in this order.
var archiveTables = []archiveTable{
	{name: "organizations", columns: cols(orgColumns)},
	{name: "memberships", columns: cols(membershipColumns)},
	{name: "projects", columns: cols(projectColumns)},
	{name: "content_types", columns: cols(contentTypeColumns), ints: set("version")},
	{name: "content_fields", columns: cols(contentFieldColumns), bools: set("required"), ints: set("position")},
	{name: "content_items", columns: cols(contentItemColumns), bools: set("published"), ints: set("version")},
	{name: "posts", columns: cols(postColumns), bools: set("published", "featured")},
	{name: "blogs", columns: cols(blogColumns), bools: set("published", "featured")},
}

// Export writes one JSONL file per table into dir. Tables are read in one
// transaction so the files describe a single point in time.
func (b *Backend) Export(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	return b.Update(ctx, func(tx types.Tables) error {
		c := tx.(tables).c
		for _, at := range archiveTables {
			records, err := exportTable(ctx, c, at)
			if err != nil {
				return err
			}
			if err := writeJSONL(filepath.Join(dir, at.file()), records); err != nil {
				return fmt.Errorf("writing %s: %w", at.file(), err)
			}
			b.log.Debug().Str("table", at.name).Int("records", len(records)).Msg("exported table")
		}
		return nil
	})
}

func exportTable(ctx context.Context, c *conn, at archiveTable) ([]json.RawMessage, error) {
	rows, err := c.query(ctx, "SELECT "+strings.Join(at.columns, ", ")+" FROM "+at.name+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", at.name, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		values := make([]any, len(at.columns))
		dest := make([]any, len(at.columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", at.name, err)
		}
		record := make(map[string]any, len(at.columns))
		for i, col := range at.columns {
			record[col] = exportValue(at, col, values[i])
		}
		raw, err := codec.JSON{}.Encode(record)
		if err != nil {
			return nil, fmt.Errorf("encoding %s record: %w", at.name, err)
		}
		records = append(records, raw)
	}
	return records, rows.Err()
}

func exportValue(at archiveTable, col string, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if at.bools[col] {
		switch t := v.(type) {
		case int64:
			return t != 0
		case bool:
			return t
		}
	}
	return v
}

// Import loads every table file found in dir in one transaction. Missing
// files are skipped. Rows that collide with existing ids or slugs abort the
// whole import with ErrConflict.
func (b *Backend) Import(ctx context.Context, dir string) error {
	return b.Update(ctx, func(tx types.Tables) error {
		c := tx.(tables).c
		for _, at := range archiveTables {
			path := filepath.Join(dir, at.file())
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				continue
			}
			records, err := readJSONL(path)
			if err != nil {
				return err
			}
			for i, rec := range records {
				if err := importRecord(ctx, c, at, rec); err != nil {
					return fmt.Errorf("%s record %d: %w", at.file(), i+1, err)
				}
			}
			b.log.Debug().Str("table", at.name).Int("records", len(records)).Msg("imported table")
		}
		return nil
	})
}

func importRecord(ctx context.Context, c *conn, at archiveTable, raw json.RawMessage) error {
	var record map[string]any
	if err := codec.NewDecoder(bytes.NewReader(raw)).Decode(&record); err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	args := make([]any, len(at.columns))
	for i, col := range at.columns {
		v, err := importValue(at, col, record[col])
		if err != nil {
			return err
		}
		args[i] = v
	}
	_, err := c.exec(ctx,
		"INSERT INTO "+at.name+" ("+strings.Join(at.columns, ", ")+") VALUES ("+placeholders(len(args))+")",
		args...,
	)
	return c.insertErr(err, types.ErrConflict, at.name)
}

func importValue(at archiveTable, col string, v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", types.ErrValidation, col, err)
		}
		if at.bools[col] {
			return n != 0, nil
		}
		return n, nil
	case bool:
		if at.ints[col] {
			if t {
				return int64(1), nil
			}
			return int64(0), nil
		}
		return t, nil
	case string, nil:
		return t, nil
	}
	return nil, fmt.Errorf("%w: column %s has unsupported value %T", types.ErrValidation, col, v)
}
