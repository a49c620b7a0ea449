package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/config"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

func TestOpenStoreMemory(t *testing.T) {
	store, closeStore, err := openStore(context.Background(), config.StoreConfig{
		Backend:    config.BackendMemory,
		Timeout:    time.Second,
		MaxRetries: 2,
	}, zerolog.Nop())
	require.NoError(t, err)
	defer closeStore()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, docstore.UserPath("alice"), map[string]any{"Password": "pw"}))
	raw, err := store.Get(ctx, docstore.UserPath("alice"))
	require.NoError(t, err)
	require.JSONEq(t, `{"Password":"pw"}`, string(raw))
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	_, _, err := openStore(context.Background(), config.StoreConfig{Backend: "cassandra"}, zerolog.Nop())
	require.ErrorContains(t, err, "unknown store backend")
}

func TestOpenStoreRTDBRejectsBadURL(t *testing.T) {
	_, _, err := openStore(context.Background(), config.StoreConfig{Backend: config.BackendRTDB, URL: "not a url", Timeout: time.Second}, zerolog.Nop())
	require.Error(t, err)
}

func TestJWTSecret(t *testing.T) {
	secret, err := jwtSecret(config.Config{Environment: "test"}, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, secret, 64)

	secret, err = jwtSecret(config.Config{Environment: "production", Auth: config.AuthConfig{JWTSecret: "fixed"}}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "fixed", secret)

	_, err = jwtSecret(config.Config{Environment: "production"}, zerolog.Nop())
	require.Error(t, err)
}
