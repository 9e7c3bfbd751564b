package sqlstore

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// pgUniqueViolation is the SQLSTATE postgres reports for unique_violation.
const pgUniqueViolation = "23505"

// dialect captures what differs between the supported engines. Queries are
// written with ? placeholders and rebound per dialect.
type dialect struct {
	name     string
	driver   string
	numbered bool
}

var (
	sqliteDialect   = &dialect{name: types.BackendSQLite, driver: "sqlite"}
	postgresDialect = &dialect{name: types.BackendPostgres, driver: "pgx", numbered: true}
)

func dialectFor(backend string) (*dialect, error) {
	switch backend {
	case types.BackendSQLite:
		return sqliteDialect, nil
	case types.BackendPostgres:
		return postgresDialect, nil
	}
	return nil, types.ErrBackendUnknown
}

// dsn returns the data source name to open for config.
func (d *dialect) dsn(config types.Config) string {
	if d.numbered {
		return config.DSN
	}
	if config.DSN != "" {
		return config.DSN
	}
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	return "file:" + filepath.Join(dataDir, types.DatabaseFile) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *dialect) rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation reports whether err is a unique constraint failure.
func (d *dialect) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
