package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/content"
	"github.com/mesh-intelligence/pantry/internal/fieldtype"
	"github.com/mesh-intelligence/pantry/internal/fixed"
	"github.com/mesh-intelligence/pantry/internal/httpapi"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/scope"
	"github.com/mesh-intelligence/pantry/internal/tenancy"
)

// services are the domain components over one store.
type services struct {
	resolver *scope.Resolver
	registry *registry.Registry
	items    *content.Store
	entries  *fixed.Store
	tenancy  *tenancy.Service
}

func (a *app) services() (*services, error) {
	resolver, err := scope.New(a.store)
	if err != nil {
		return nil, sysError(err)
	}
	validator := fieldtype.New()
	reg := registry.New(a.store,
		registry.WithValidator(validator),
		registry.WithRequireVersion(a.settings.RequireVersion),
		registry.WithLogger(a.log.With().Str("component", "registry").Logger()),
	)
	return &services{
		resolver: resolver,
		registry: reg,
		items: content.New(a.store, reg,
			content.WithValidator(validator),
			content.WithRequireVersion(a.settings.RequireVersion),
			content.WithLogger(a.log.With().Str("component", "content").Logger()),
		),
		entries: fixed.New(a.store, fixed.WithLogger(a.log.With().Str("component", "entries").Logger())),
		tenancy: tenancy.New(a.store, resolver, tenancy.WithLogger(a.log.With().Str("component", "tenancy").Logger())),
	}, nil
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, flags, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: 127.0.0.1:8080)")
	return cmd
}

func serve(ctx context.Context, flags *rootFlags, listen string) error {
	a, err := open(ctx, flags, listen)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.services()
	if err != nil {
		return err
	}
	verifier := a.settings.Verifier()
	if len(verifier) == 0 {
		a.log.Warn().Msg("no auth tokens or jwt secret configured; authenticated routes will reject every request")
	}
	srv := httpapi.New(httpapi.Deps{
		Resolver: svc.resolver,
		Registry: svc.registry,
		Items:    svc.items,
		Entries:  svc.entries,
		Tenancy:  svc.tenancy,
		Verifier: verifier,
		Logger:   a.log.With().Str("component", "http").Logger(),
		Version:  Version,
	})
	if err := srv.Serve(ctx, a.settings.Listen, a.settings.ShutdownTimeout); err != nil {
		return sysError(err)
	}
	return nil
}
