// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/toeirei/proctor/internal/api"
	"github.com/toeirei/proctor/internal/auth"
	"github.com/toeirei/proctor/internal/logging"
)

const defaultShutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Starts the HTTP API on server.addr.

When the database holds no accounts yet and admin.username and
admin.password are configured, an admin account is created first.
SIGINT and SIGTERM trigger a graceful shutdown bounded by
server.shutdown_timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			admin := appConfig.Admin.SystemAdmin()
			if admin.Enabled() {
				if _, err := seedAdmin(cmd.Context(), store, appConfig.Admin.Username, appConfig.Admin.Password, cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			guard, err := auth.NewGuard(store, hasher(), admin)
			if err != nil {
				return err
			}
			srv := api.NewServer(api.Config{
				Addr:         appConfig.Server.Addr,
				ReadTimeout:  appConfig.Server.ReadTimeout,
				WriteTimeout: appConfig.Server.WriteTimeout,
				IdleTimeout:  appConfig.Server.IdleTimeout,
			}, store, guard)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, srv, nil, appConfig.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().String("server.addr", ":8080", "Address the API listens on")
	return cmd
}

// runServer serves on l (or the configured address when l is nil) until
// ctx is done, then shuts the server down within shutdownTimeout.
func runServer(ctx context.Context, srv *api.Server, l net.Listener, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if l != nil {
			return srv.Serve(l)
		}
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Errorf("serve: shutdown: %v", err)
			return err
		}
		return nil
	})
	return g.Wait()
}
