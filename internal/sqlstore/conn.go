package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// conn runs rebound queries. live is nil for transaction conns.
type conn struct {
	q    queryer
	d    *dialect
	live *atomic.Bool
}

func (c *conn) ready() error {
	if c.live != nil && !c.live.Load() {
		return types.ErrCupboardDetached
	}
	return nil
}

func (c *conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.q.ExecContext(ctx, c.d.rebind(query), args...)
}

func (c *conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.q.QueryContext(ctx, c.d.rebind(query), args...)
}

func (c *conn) queryRow(ctx context.Context, query string, args ...any) rowScanner {
	if err := c.ready(); err != nil {
		return errRow{err}
	}
	return c.q.QueryRowContext(ctx, c.d.rebind(query), args...)
}

// execOne runs a statement that must touch exactly one row. Zero rows is
// ErrNotFound.
func (c *conn) execOne(ctx context.Context, query string, args ...any) error {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// exists reports whether query returns a row.
func (c *conn) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := c.queryRow(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// insertErr maps unique violations to dup and passes other errors through.
func (c *conn) insertErr(err error, dup error, what string) error {
	if err == nil {
		return nil
	}
	if c.d.isUniqueViolation(err) {
		return dup
	}
	return fmt.Errorf("inserting %s: %w", what, err)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// now returns the current time in UTC without a monotonic reading, so a
// value compares equal to itself after a store round trip.
func now() time.Time {
	return time.Now().UTC()
}

func nullBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
