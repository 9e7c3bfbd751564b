package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations
var migrationFS embed.FS

const (
	migrationTable = "schema_migrations"
	markerUp       = "-- +migrate Up"
	markerDown     = "-- +migrate Down"
)

// migrate applies every embedded migration for d that has not been recorded
// in schema_migrations. Each file runs in its own transaction.
func migrate(ctx context.Context, db *sql.DB, d *dialect) ([]string, error) {
	root := path.Join("migrations", d.name)
	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return nil, fmt.Errorf("reading migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	create := "CREATE TABLE IF NOT EXISTS " + migrationTable +
		" (name TEXT PRIMARY KEY, applied_at BIGINT NOT NULL)"
	if _, err := db.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("ensuring migration table: %w", err)
	}

	var applied []string
	for _, name := range files {
		done, err := isApplied(ctx, db, d, name)
		if err != nil {
			return applied, fmt.Errorf("checking migration %s: %w", name, err)
		}
		if done {
			continue
		}
		content, err := fs.ReadFile(migrationFS, path.Join(root, name))
		if err != nil {
			return applied, fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := applyMigration(ctx, db, d, name, upSection(string(content))); err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}
	return applied, nil
}

func applyMigration(ctx context.Context, db *sql.DB, d *dialect, name, up string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration %s: %w", name, err)
	}
	defer tx.Rollback()

	for _, stmt := range statements(up) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	_, err = tx.ExecContext(ctx,
		d.rebind("INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)"),
		name, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s: %w", name, err)
	}
	return nil
}

func isApplied(ctx context.Context, db *sql.DB, d *dialect, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx,
		d.rebind("SELECT 1 FROM "+migrationTable+" WHERE name = ?"), name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// upSection returns the SQL between the Up and Down markers.
func upSection(content string) string {
	up := strings.Index(content, markerUp)
	if up == -1 {
		return content
	}
	content = content[up+len(markerUp):]
	if down := strings.Index(content, markerDown); down != -1 {
		content = content[:down]
	}
	return content
}

// statements splits a migration body on semicolons. Migrations must not put
// semicolons inside literals.
func statements(body string) []string {
	var out []string
	for _, s := range strings.Split(body, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
