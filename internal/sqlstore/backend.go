// Package sqlstore implements the pantry Cupboard on a SQL engine. SQLite
// (modernc.org/sqlite) is the default; postgres is reached through the pgx
// stdlib driver. Schema changes ship as embedded migrations per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

var (
	_ types.Cupboard = (*Backend)(nil)
	_ types.Archiver = (*Backend)(nil)
)

// Backend implements types.Cupboard over database/sql.
type Backend struct {
	mu       sync.Mutex
	attached atomic.Bool
	config   types.Config
	dialect  *dialect
	db       *sql.DB
	log      zerolog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for migration and lifecycle events.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Backend) {
		b.log = log
	}
}

// NewBackend creates a detached backend. Call Attach to open the database.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens the database described by config and applies pending
// migrations. For sqlite the DataDir is created when missing.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached.Load() {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	d, err := dialectFor(config.Backend)
	if err != nil {
		return err
	}

	if d == sqliteDialect && config.DSN == "" {
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
	}

	db, err := sql.Open(d.driver, d.dsn(config))
	if err != nil {
		return fmt.Errorf("opening %s database: %w", d.name, err)
	}
	if d == sqliteDialect {
		// One connection serializes writers and keeps transactions from
		// contending for the file lock.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connecting to %s database: %w", d.name, err)
	}

	applied, err := migrate(ctx, db, d)
	if err != nil {
		db.Close()
		return err
	}
	for _, name := range applied {
		b.log.Info().Str("migration", name).Str("backend", d.name).Msg("applied migration")
	}

	b.db = db
	b.dialect = d
	b.config = config
	b.attached.Store(true)
	return nil
}

// Detach closes the database. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached.Load() {
		return nil
	}
	b.attached.Store(false)
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
		b.db = nil
	}
	return nil
}

// Update runs fn in a transaction. fn must only use the Tables it is given;
// with sqlite the backend holds a single connection, so using the Backend's
// own accessors inside fn blocks.
func (b *Backend) Update(ctx context.Context, fn func(types.Tables) error) error {
	if !b.attached.Load() {
		return types.ErrCupboardDetached
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tables{c: &conn{q: tx, d: b.dialect}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (b *Backend) conn() *conn {
	return &conn{q: b.db, d: b.dialect, live: &b.attached}
}

// Organizations returns the organization table outside any transaction.
func (b *Backend) Organizations() types.OrganizationTable { return tables{b.conn()}.Organizations() }

// Projects returns the project table outside any transaction.
func (b *Backend) Projects() types.ProjectTable { return tables{b.conn()}.Projects() }

// Memberships returns the membership table outside any transaction.
func (b *Backend) Memberships() types.MembershipTable { return tables{b.conn()}.Memberships() }

// ContentTypes returns the content type table outside any transaction.
func (b *Backend) ContentTypes() types.ContentTypeTable { return tables{b.conn()}.ContentTypes() }

// ContentFields returns the content field table outside any transaction.
func (b *Backend) ContentFields() types.ContentFieldTable { return tables{b.conn()}.ContentFields() }

// ContentItems returns the content item table outside any transaction.
func (b *Backend) ContentItems() types.ContentItemTable { return tables{b.conn()}.ContentItems() }

// Posts returns the post table outside any transaction.
func (b *Backend) Posts() types.PostTable { return tables{b.conn()}.Posts() }

// Blogs returns the blog table outside any transaction.
func (b *Backend) Blogs() types.BlogTable { return tables{b.conn()}.Blogs() }

// tables binds every accessor to one conn.
type tables struct {
	c *conn
}

func (t tables) Organizations() types.OrganizationTable { return &organizationsTable{t.c} }
func (t tables) Projects() types.ProjectTable           { return &projectsTable{t.c} }
func (t tables) Memberships() types.MembershipTable     { return &membershipsTable{t.c} }
func (t tables) ContentTypes() types.ContentTypeTable   { return &contentTypesTable{t.c} }
func (t tables) ContentFields() types.ContentFieldTable { return &contentFieldsTable{t.c} }
func (t tables) ContentItems() types.ContentItemTable   { return &contentItemsTable{t.c} }
func (t tables) Posts() types.PostTable                 { return &postsTable{entryTable{c: t.c, table: "posts"}} }
func (t tables) Blogs() types.BlogTable                 { return &blogsTable{entryTable{c: t.c, table: "blogs"}} }

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
