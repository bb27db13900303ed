package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/analytics"
	"github.com/tractionhq/traction/backend/api"
	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
	"github.com/tractionhq/traction/shared"
	"github.com/tractionhq/traction/shared/listener"
	"github.com/tractionhq/traction/shared/resilience"
)

const serveShutdownGrace = 5 * time.Second

type serveOptions struct {
	HTTPAddress string
	UnixSocket  string
}

func NewServeCmd() *cobra.Command {
	options := serveOptions{}

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the engine API server as a persistent service",
		GroupID: "system",
		Long: `Run the engine API server as a persistent service.

The server exposes the task lifecycle over HTTP, streams engine events over
SSE, and sweeps open tasks for overdue escalation on the configured
interval. Only one instance runs at a time; a lock file in the runtime
directory keeps later starts out.`,
		Example: `  # Serve on the configured address
  traction serve

  # Serve on an explicit address or socket
  traction serve --listen-http 127.0.0.1:7618
  traction serve --listen-unix /run/traction/traction.sock`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := getEngine(cmd.Context())
			cfg := engine.Config

			userInfo := getUserInfo(cmd.Context())
			runtimeDir, err := userInfo.TractionRuntimeDir()
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(runtimeDir, "traction.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fail.HandleError(cmd, err)
			}
			if !locked {
				return fail.NewAlreadyRunningError(lock.Path())
			}
			defer lock.Unlock()

			httpAddress := options.HTTPAddress
			if httpAddress == "" && options.UnixSocket == "" && !listener.IsSystemdSocketActivation() {
				httpAddress = cfg.Server.Listen
			}

			provider, err := listener.DetectProvider(httpAddress, options.UnixSocket)
			if err != nil {
				return fmt.Errorf("failed to detect listener provider: %w", err)
			}

			ln, err := provider.Create()
			if err != nil {
				return fail.HandleError(cmd, fmt.Errorf("failed to create listener: %w", err))
			}
			defer provider.Close()

			serverOptions := api.ServerOptions{
				Registry: engine.Registry,
				Router:   engine.Router,
			}
			if cfg.Server.RequireAuth {
				token, err := getTokenManager(cmd.Context()).RetrieveToken(shared.APITokenKey)
				if err != nil {
					return fail.NewMissingTokenError(err)
				}
				serverOptions.Verifier = api.NewTokenVerifier(token)
			}

			server := api.NewServer(engine.Tracker, engine.Reports, serverOptions)

			client, err := analytics.New(analytics.Config{
				Enabled:  cfg.Analytics.Enabled,
				APIKey:   cfg.Analytics.APIKey,
				Endpoint: cfg.Analytics.Endpoint,
			})
			if err != nil {
				return err
			}
			guarded := analytics.Guarded(client, resilience.NewCircuitBreaker("posthog", 5, 30*time.Second))
			detach := analytics.Attach(engine.Bus, guarded)
			defer func() {
				detach()
				client.Close()
			}()

			go engine.Tracker.RunSweeper(cmd.Context(), cfg.Escalation.SweepInterval.Std())

			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownGrace)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("server shutdown failed", "error", err)
				}
			}()

			slog.Info("serving engine API",
				"activation", provider.ActivationType(),
				"address", ln.Addr().String(),
				"auth", cfg.Server.RequireAuth,
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Serving traction on %s\n", ln.Addr())
			return server.Serve(ln)
		},
	}

	cmd.Flags().StringVar(&options.HTTPAddress, "listen-http", "", "The address to listen on for HTTP requests (overrides config)")
	cmd.Flags().StringVar(&options.UnixSocket, "listen-unix", "", "The path to listen on for Unix socket requests")

	return cmd
}
