package redis

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/storetest"
)

var (
	sharedOnce    sync.Once
	sharedInitErr error
	sharedClient  *goredis.Client
)

func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	sharedOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		container, err := tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			sharedInitErr = err
			return
		}
		addr, err := container.ConnectionString(ctx)
		if err != nil {
			sharedInitErr = err
			return
		}
		sharedClient, sharedInitErr = NewClient(ctx, addr)
	})
	require.NoError(t, sharedInitErr)
	require.NoError(t, sharedClient.FlushAll(context.Background()).Err())
	return sharedClient
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		return New(setupRedis(t), "test:")
	})
}

func TestConcurrentConditionalIncrements(t *testing.T) {
	store := New(setupRedis(t), "test:")
	ctx := context.Background()
	p := docstore.P(docstore.Events, "1", "seats")

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				raw, etag, err := store.GetWithETag(ctx, p)
				if err != nil {
					errs <- err
					return
				}
				n := 0
				if raw != nil {
					n, _ = strconv.Atoi(string(raw))
				}
				if err := store.SetIfMatch(ctx, p, n+1, etag); err == nil {
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	raw, err := store.Get(ctx, p)
	require.NoError(t, err)
	require.Equal(t, "10", string(raw))
}

func TestPrefixIsolatesDeployments(t *testing.T) {
	client := setupRedis(t)
	a := New(client, "a:")
	b := New(client, "b:")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, docstore.UserPath("alice"), map[string]any{"Password": "pw"}))

	raw, err := b.Get(ctx, docstore.UserPath("alice"))
	require.NoError(t, err)
	require.Nil(t, raw)
}
