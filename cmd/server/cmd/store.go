package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/config"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/memory"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/postgres"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/redis"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/rtdb"
)

// openStore connects the configured backend and wraps it with metrics,
// tracing and retries. The returned close func releases connections.
func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (docstore.Store, func(), error) {
	var (
		inner   docstore.Store
		closeFn = func() {}
	)

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn().Msg("using in-memory store; data is lost on exit")
		inner = memory.New()

	case config.BackendRTDB:
		client, err := rtdb.New(cfg.URL, cfg.AuthToken, &http.Client{Timeout: cfg.Timeout})
		if err != nil {
			return nil, nil, err
		}
		inner = client

	case config.BackendPostgres:
		if err := postgres.MigrateUp(cfg.URL, cfg.MigrationsPath); err != nil {
			return nil, nil, fmt.Errorf("migrate document store: %w", err)
		}
		pool, err := postgres.Open(ctx, cfg.URL, cfg.MaxConnections)
		if err != nil {
			return nil, nil, err
		}
		store, err := postgres.New(pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		inner = store
		closeFn = pool.Close

	case config.BackendRedis:
		client, err := redis.NewClient(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		inner = redis.New(client, cfg.Prefix)
		closeFn = func() { _ = client.Close() }

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	logger.Info().Str("backend", cfg.Backend).Msg("document store ready")
	return docstore.Instrument(inner, logger, docstore.InstrumentOptions{
		Backend:  cfg.Backend,
		MaxTries: uint(max(cfg.MaxRetries, 0)) + 1,
		Timeout:  cfg.Timeout,
	}), closeFn, nil
}
