package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/pantry/internal/config"
	"github.com/mesh-intelligence/pantry/internal/logging"
	"github.com/mesh-intelligence/pantry/pkg/sqlstore"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// app is the configuration, logger and attached store shared by commands
// that touch storage.
type app struct {
	settings *config.Settings
	logs     *logging.Log
	log      zerolog.Logger
	store    sqlstore.Store
}

// open loads configuration, builds the logger and attaches the store.
func open(ctx context.Context, flags *rootFlags, listen string) (*app, error) {
	settings, err := config.Load(config.Flags{
		ConfigDir: flags.configDir,
		DataDir:   flags.dataDir,
		Listen:    listen,
		LogLevel:  flags.logLevel,
	})
	if err != nil {
		if errors.Is(err, types.ErrValidation) {
			return nil, userError(err)
		}
		return nil, sysError(err)
	}

	b := logging.New().ToWriter(os.Stderr).Level(settings.LogLevel).Format(settings.LogFormat)
	if settings.LogFile != "" {
		b = b.ToPath(settings.LogFile)
	}
	logs, err := b.Make()
	if err != nil {
		return nil, userError(fmt.Errorf("configuring logs: %w", err))
	}

	store := sqlstore.NewBackend(sqlstore.WithLogger(logs.Logger))
	if err := store.Attach(ctx, settings.Store()); err != nil {
		logs.Close()
		return nil, sysError(fmt.Errorf("attaching %s store: %w", settings.Backend, err))
	}
	logs.Logger.Debug().
		Str("config_dir", settings.ConfigDir).
		Str("data_dir", settings.DataDir).
		Str("backend", settings.Backend).
		Msg("store attached")
	return &app{settings: settings, logs: logs, log: logs.Logger, store: store}, nil
}

// Close detaches the store and closes the log file.
func (a *app) Close() {
	if err := a.store.Detach(); err != nil {
		a.log.Warn().Err(err).Msg("detaching store")
	}
	a.logs.Close()
}
