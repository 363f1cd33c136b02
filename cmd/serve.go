package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/calvoice/calvoice/internal/instrumentation"
	"github.com/calvoice/calvoice/internal/server"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode          bool
		httpAddr           string
		googleClientID     string
		googleClientSecret string
		googleRedirectURL  string
		sessionTokenTTL    time.Duration
		metricsConfig      MetricsConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook adapter HTTP server",
		Long: `Start the HTTP server that receives the assistant platform's webhooks,
the session registration endpoint, and the Google Calendar connect flow.

Google OAuth Configuration (required):
  --google-client-id, --google-client-secret and --google-redirect-url
  OR GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL env vars.
  The redirect URL must point to this server's /auth/callback endpoint.

Metrics:
  A dedicated metrics listener serves /metrics for Prometheus scraping.
  Controlled with --metrics-enabled / --metrics-addr or the METRICS_ENABLED /
  METRICS_ADDR env vars.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel := slog.LevelInfo
			if debugMode {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
			slog.SetDefault(logger)

			// Fall back to environment for anything not set via flags.
			if googleClientID == "" {
				googleClientID = os.Getenv("GOOGLE_CLIENT_ID")
			}
			if googleClientSecret == "" {
				googleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
			}
			if googleRedirectURL == "" {
				googleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
			}
			if httpAddr == "" {
				if addr := os.Getenv("HTTP_ADDR"); addr != "" {
					httpAddr = addr
				}
			}
			if sessionTokenTTL == 0 {
				if ttl := os.Getenv("SESSION_TOKEN_TTL"); ttl != "" {
					parsed, err := time.ParseDuration(ttl)
					if err != nil {
						return fmt.Errorf("invalid SESSION_TOKEN_TTL: %w", err)
					}
					sessionTokenTTL = parsed
				}
			}
			if !metricsConfig.Enabled && os.Getenv("METRICS_ENABLED") == "true" {
				metricsConfig.Enabled = true
			}
			if metricsConfig.Addr == "" || metricsConfig.Addr == server.DefaultMetricsAddr {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					metricsConfig.Addr = addr
				}
			}

			// Setup graceful shutdown
			shutdownCtx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			// Initialize instrumentation provider
			instrConfig := instrumentation.DefaultConfig()
			instrConfig.ServiceVersion = version

			provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
			if err != nil {
				return fmt.Errorf("failed to create instrumentation provider: %w", err)
			}
			defer func() {
				if err := provider.Shutdown(shutdownCtx); err != nil {
					logger.Error("Error during instrumentation shutdown", "error", err)
				}
			}()

			// Start metrics server on its own listener.
			var metricsServer *server.MetricsServer
			if metricsConfig.Enabled && provider.Enabled() {
				metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
					Addr:                    metricsConfig.Addr,
					InstrumentationProvider: provider,
				})
				if err != nil {
					return fmt.Errorf("failed to create metrics server: %w", err)
				}

				metricsReady := make(chan struct{})
				metricsErr := make(chan error, 1)
				go func() {
					if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
						metricsErr <- err
					}
					close(metricsErr)
				}()

				select {
				case <-metricsReady:
					logger.Info("Metrics server started", "addr", metricsServer.Addr())
				case err := <-metricsErr:
					return fmt.Errorf("metrics server failed to start: %w", err)
				case <-time.After(5 * time.Second):
					return fmt.Errorf("metrics server startup timed out")
				}
			}

			sc, err := server.NewServerContext(shutdownCtx, server.Config{
				GoogleClientID:     googleClientID,
				GoogleClientSecret: googleClientSecret,
				GoogleRedirectURL:  googleRedirectURL,
				SessionTokenTTL:    sessionTokenTTL,
				Logger:             logger,
				Instrumentation:    provider,
			})
			if err != nil {
				return err
			}
			defer sc.Shutdown()

			api := server.NewAPIServer(sc, httpAddr)

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("Starting API server", "addr", api.Addr())
				serverErr <- api.Start()
			}()

			select {
			case err := <-serverErr:
				return err
			case <-shutdownCtx.Done():
			}

			logger.Info("Shutting down")
			drainCtx, drainCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer drainCancel()

			if err := api.Shutdown(drainCtx); err != nil {
				logger.Error("API server shutdown failed", "error", err)
			}
			if metricsServer != nil {
				if err := metricsServer.Shutdown(drainCtx); err != nil {
					logger.Error("Metrics server shutdown failed", "error", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "Address for the API server (default \":8080\", env: HTTP_ADDR)")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth client ID (env: GOOGLE_CLIENT_ID)")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth client secret (env: GOOGLE_CLIENT_SECRET)")
	cmd.Flags().StringVar(&googleRedirectURL, "google-redirect-url", "", "OAuth callback URL, must end in /auth/callback (env: GOOGLE_REDIRECT_URL)")
	cmd.Flags().DurationVar(&sessionTokenTTL, "session-token-ttl", 0, "Lifetime of unredeemed session tokens (default 10m, env: SESSION_TOKEN_TTL)")
	cmd.Flags().BoolVar(&metricsConfig.Enabled, "metrics-enabled", true, "Enable the Prometheus metrics server (env: METRICS_ENABLED)")
	cmd.Flags().StringVar(&metricsConfig.Addr, "metrics-addr", server.DefaultMetricsAddr, "Address for the metrics server (env: METRICS_ADDR)")

	return cmd
}
