package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/config"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the backend HTTP server",
		Long: `Start the backend HTTP server on PORT (default 5000) and, when
admin.port is set, the admin listener with health and readiness endpoints.

The database connection is attempted once in the background; a failure is
logged and never stops the server. The server shuts down cleanly on SIGTERM
or SIGINT.`,
		RunE: c.runServer,
	}
}

func (c *cli) runServer(cmd *cobra.Command, _ []string) error {
	return runServer(cmd.Context(), c.app)
}

// runServer binds the configured ports and serves until a shutdown signal.
// A bind failure is returned so the process exits non-zero.
func runServer(ctx context.Context, app *AppContext) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.cfg.Server.Port))
	if err != nil {
		closeApp(app)
		return fmt.Errorf("binding port %d: %w", app.cfg.Server.Port, err)
	}

	var adminLn net.Listener
	if app.admin != nil {
		adminLn, err = net.Listen("tcp", fmt.Sprintf(":%d", app.cfg.Admin.Port))
		if err != nil {
			ln.Close() //nolint:errcheck
			closeApp(app)
			return fmt.Errorf("binding admin port %d: %w", app.cfg.Admin.Port, err)
		}
	}

	return serve(ctx, app, ln, adminLn)
}

// closeApp releases what buildAppContext set up when serving never starts.
// The telemetry exporter is flushed within the shutdown timeout.
func closeApp(app *AppContext) {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
	defer cancel()
	app.Close(ctx)
}

type listener struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

// serve starts the connect attempt and the HTTP servers on the given
// listeners, then blocks until ctx is done or a server fails. adminLn may be
// nil. The connect attempt and the listening log line are not ordered.
func serve(ctx context.Context, app *AppContext, ln, adminLn net.Listener) error {
	connectDone := app.bootstrap.ConnectAsync(ctx)

	listeners := []listener{{
		name: "backend",
		srv:  newHTTPServer(app.cfg.Server, app.router.Handler()),
		ln:   ln,
	}}
	if adminLn != nil && app.admin != nil {
		listeners = append(listeners, listener{
			name: "admin",
			srv:  newHTTPServer(app.cfg.Server, app.admin.Handler()),
			ln:   adminLn,
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, l := range listeners {
		g.Go(func() error {
			slog.Info(l.name+" running", "port", listenPort(l.ln))
			if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server error: %w", l.name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			slog.Info("shutdown signal received")
		}

		shutCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, l := range listeners {
			if err := l.srv.Shutdown(shutCtx); err != nil {
				errs = append(errs, fmt.Errorf("graceful shutdown of %s failed: %w", l.name, err))
			}
		}
		return errors.Join(errs...)
	})

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Let the connect attempt observe the cancellation before disconnecting.
	select {
	case <-connectDone:
	case <-closeCtx.Done():
	}
	app.Close(closeCtx)

	if err != nil {
		return err
	}
	slog.Info("server stopped cleanly")
	return nil
}

func newHTTPServer(cfg config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

func listenPort(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
