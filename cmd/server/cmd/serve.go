package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/api"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/audit"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/auth"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/config"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/accounts"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/enrollment"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/events"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/metrics"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(flags *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server and begin accepting requests.

The server will:
- Load configuration from the --config file and environment variables
- Connect the configured document store (migrating PostgreSQL first)
- Run periodic enrollment reconciliation when RECONCILE_INTERVAL is set
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with configuration from env vars
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with a config file and debug logging
  server serve --config /etc/charity/config.yaml --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg, Version)
	logger.Info().Str("commit", GitCommit).Msg("starting charity event server")

	metrics.Init(Version, GitCommit, BuildDate, cfg.Store.Backend)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing init: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, closeStore, err := openStore(openCtx, cfg.Store, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	secret, err := jwtSecret(cfg, logger)
	if err != nil {
		return err
	}

	auditLogger := audit.NewLoggerWithZerolog(logger)
	coordinator := enrollment.NewCoordinator(store, auditLogger, logger)
	reconciler := enrollment.NewReconciler(coordinator)

	handler := api.NewRouter(api.Deps{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Accounts:    accounts.NewService(store, auditLogger, logger),
		Catalog:     events.NewCatalog(store),
		Coordinator: coordinator,
		Reconciler:  reconciler,
		Tokens:      auth.NewJWTManager(secret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer),
		Version:     Version,
		GitCommit:   GitCommit,
		BuildDate:   BuildDate,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.Reconcile.Interval > 0 {
		g.Go(func() error {
			logger.Info().Dur("interval", cfg.Reconcile.Interval).Msg("periodic reconciliation enabled")
			return reconciler.Run(gctx, cfg.Reconcile.Interval)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// jwtSecret returns the configured signing secret. Development and test runs
// without one get a random per-process secret, so sessions end on restart.
func jwtSecret(cfg config.Config, logger zerolog.Logger) (string, error) {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret, nil
	}
	if !cfg.IsDevelopment() {
		return "", errors.New("JWT_SECRET is required")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	logger.Warn().Msg("JWT_SECRET not set; using an ephemeral secret")
	return hex.EncodeToString(buf), nil
}
