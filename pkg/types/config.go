package types

import "fmt"

// Config holds backend selection and parameters for Cupboard.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
	DSN     string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DatabaseFile is the sqlite file created under DataDir.
const DatabaseFile = "pantry.db"

// Config validation errors.
var (
	ErrBackendEmpty   = fmt.Errorf("%w: backend must not be empty", ErrInvalidConfig)
	ErrBackendUnknown = fmt.Errorf("%w: unknown backend", ErrInvalidConfig)
	ErrDSNRequired    = fmt.Errorf("%w: postgres backend requires a dsn", ErrInvalidConfig)
)

var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendPostgres && c.DSN == "" {
		return ErrDSNRequired
	}
	return nil
}
