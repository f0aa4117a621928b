package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/api"
	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/bootstrap"
	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/clients"
	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/config"
	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/telemetry"
)

// AppContext holds all constructed application dependencies. It is built
// once in PersistentPreRunE and passed explicitly to every subcommand.
type AppContext struct {
	cfg          *config.Config
	otelProvider *telemetry.Provider
	mongo        *clients.MongoClient
	bootstrap    *bootstrap.Bootstrapper
	router       *api.Router
	// admin is nil when admin.port is 0.
	admin *api.Router
}

// buildAppContext constructs all application dependencies from cfg:
//  1. Initialises the OTEL provider (best-effort, non-fatal)
//  2. Creates the MongoDB client and its circuit breaker
//  3. Creates the bootstrapper that owns the connect attempt
//  4. Creates the public router and, if enabled, the admin router
//
// No network I/O to the database happens here.
func buildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	app := &AppContext{cfg: cfg}

	tp, err := telemetry.InitProvider(ctx, cfg.Telemetry)
	switch {
	case errors.Is(err, telemetry.ErrDisabled):
		slog.Debug("OTEL telemetry disabled (no endpoint configured)")
	case err != nil:
		slog.Warn("OTEL provider init failed, telemetry disabled", "err", err)
	default:
		app.otelProvider = tp
	}

	app.mongo = clients.NewMongoClient(cfg.Mongo, clients.NewCircuitBreaker("mongo"))
	app.bootstrap = bootstrap.New(app.mongo)

	app.router = api.NewRouter(api.Options{
		ServiceName:   cfg.Telemetry.ServiceName,
		JSONBodyLimit: cfg.Server.JSONBodyLimit,
		Logger:        slog.Default(),
	})
	if cfg.Admin.Port > 0 {
		app.admin = api.NewAdminRouter(app.bootstrap, slog.Default())
	}

	return app, nil
}

// Close disconnects from the database and flushes telemetry.
// ctx should have a deadline.
func (a *AppContext) Close(ctx context.Context) {
	if err := a.bootstrap.Shutdown(ctx); err != nil {
		slog.Warn("MongoDB disconnect error", "err", err)
	}
	if err := a.otelProvider.Shutdown(ctx); err != nil {
		slog.Warn("OTEL shutdown error", "err", err)
	}
}
