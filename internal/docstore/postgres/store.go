// Package postgres keeps the document tree in a single jsonb table, one row
// per collection/key record.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

type Backend struct {
	pool *pgxpool.Pool
}

// New wraps pool in a docstore. The documents table must already exist.
func New(pool *pgxpool.Pool) (*docstore.RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres docstore: pool is nil")
	}
	return docstore.NewRecordStore(&Backend{pool: pool}), nil
}

// Open creates a pool for databaseURL, capping it at maxConns when positive.
func Open(ctx context.Context, databaseURL string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}

func (b *Backend) LoadRecord(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var body []byte
	err := b.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND key = $2`,
		collection, key,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("load", collection, key, err)
	}
	return json.RawMessage(body), nil
}

func (b *Backend) ListRecords(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT key, body FROM documents WHERE collection = $1`,
		collection,
	)
	if err != nil {
		return nil, classify("list", collection, "", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var (
			key  string
			body []byte
		)
		if err := rows.Scan(&key, &body); err != nil {
			return nil, classify("list", collection, "", err)
		}
		out[key] = json.RawMessage(body)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", collection, "", err)
	}
	return out, nil
}

// MutateRecord serializes writers of one record with a transaction-scoped
// advisory lock, which also covers records that do not exist yet.
func (b *Backend) MutateRecord(ctx context.Context, collection, key string, fn func(json.RawMessage) (json.RawMessage, error)) error {
	return b.withTx(ctx, collection, key, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, collection+"/"+key); err != nil {
			return classify("lock", collection, key, err)
		}

		var current json.RawMessage
		var body []byte
		err := tx.QueryRow(ctx,
			`SELECT body FROM documents WHERE collection = $1 AND key = $2`,
			collection, key,
		).Scan(&body)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return classify("load", collection, key, err)
		default:
			current = json.RawMessage(body)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND key = $2`, collection, key); err != nil {
				return classify("delete", collection, key, err)
			}
			return nil
		}
		if _, err := tx.Exec(ctx, upsertSQL, collection, key, string(next)); err != nil {
			return classify("upsert", collection, key, err)
		}
		return nil
	})
}

func (b *Backend) ReplaceCollection(ctx context.Context, collection string, records map[string]json.RawMessage) error {
	return b.withTx(ctx, collection, "", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM documents WHERE collection = $1`, collection)
		for key, body := range records {
			batch.Queue(upsertSQL, collection, key, string(body))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return classify("replace", collection, "", err)
		}
		return nil
	})
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return classify("ping", "", "", err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO documents (collection, key, body, updated_at)
VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (collection, key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`

func (b *Backend) withTx(ctx context.Context, collection, key string, fn func(pgx.Tx) error) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return classify("begin", collection, key, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit", collection, key, err)
	}
	return nil
}

// classify marks connection-level failures as temporary so the
// instrumented store can retry them.
func classify(op, collection, key string, err error) error {
	temporary := pgconn.Timeout(err) || pgconn.SafeToRetry(err)
	path := docstore.P(collection)
	if key != "" {
		path = path.Child(key)
	}
	return docstore.Wrap(op, path, err, temporary)
}
