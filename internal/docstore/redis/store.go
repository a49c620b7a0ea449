// Package redis keeps each record as a JSON string and tracks the keys of a
// collection in a set. Single-record writes use WATCH/MULTI so concurrent
// read-modify-write cycles never interleave.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

// maxWatchAttempts bounds optimistic retries inside MutateRecord.
const maxWatchAttempts = 32

type Backend struct {
	client *goredis.Client
	prefix string
}

// NewClient parses url, connects and pings.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// New returns a docstore over client. prefix namespaces every key so several
// deployments can share one Redis database.
func New(client *goredis.Client, prefix string) *docstore.RecordStore {
	return docstore.NewRecordStore(&Backend{client: client, prefix: prefix})
}

func (b *Backend) docKey(collection, key string) string {
	return b.prefix + "doc:" + collection + ":" + key
}

func (b *Backend) indexKey(collection string) string {
	return b.prefix + "idx:" + collection
}

func (b *Backend) LoadRecord(ctx context.Context, collection, key string) (json.RawMessage, error) {
	val, err := b.client.Get(ctx, b.docKey(collection, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("load", collection, key, err)
	}
	return json.RawMessage(val), nil
}

func (b *Backend) ListRecords(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	keys, err := b.client.SMembers(ctx, b.indexKey(collection)).Result()
	if err != nil {
		return nil, classify("list", collection, "", err)
	}
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	docKeys := make([]string, len(keys))
	for i, k := range keys {
		docKeys[i] = b.docKey(collection, k)
	}
	values, err := b.client.MGet(ctx, docKeys...).Result()
	if err != nil {
		return nil, classify("list", collection, "", err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i]] = json.RawMessage(s)
	}
	return out, nil
}

func (b *Backend) MutateRecord(ctx context.Context, collection, key string, fn func(json.RawMessage) (json.RawMessage, error)) error {
	docKey := b.docKey(collection, key)
	idxKey := b.indexKey(collection)

	txf := func(tx *goredis.Tx) error {
		var current json.RawMessage
		val, err := tx.Get(ctx, docKey).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return classify("load", collection, key, err)
		default:
			current = json.RawMessage(val)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, docKey)
				pipe.SRem(ctx, idxKey, key)
				return nil
			}
			pipe.Set(ctx, docKey, []byte(next), 0)
			pipe.SAdd(ctx, idxKey, key)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err := b.client.Watch(ctx, txf, docKey)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			var se *docstore.StoreError
			if errors.As(err, &se) || errors.Is(err, docstore.ErrETagMismatch) {
				return err
			}
			return classify("mutate", collection, key, err)
		}
		return nil
	}
	return &docstore.StoreError{Op: "mutate", Path: docstore.P(collection, key).String(), Err: goredis.TxFailedErr, Temporary: true}
}

func (b *Backend) ReplaceCollection(ctx context.Context, collection string, records map[string]json.RawMessage) error {
	idxKey := b.indexKey(collection)
	err := b.client.Watch(ctx, func(tx *goredis.Tx) error {
		existing, err := tx.SMembers(ctx, idxKey).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			for _, k := range existing {
				pipe.Del(ctx, b.docKey(collection, k))
			}
			pipe.Del(ctx, idxKey)
			for k, body := range records {
				pipe.Set(ctx, b.docKey(collection, k), []byte(body), 0)
				pipe.SAdd(ctx, idxKey, k)
			}
			return nil
		})
		return err
	}, idxKey)
	if errors.Is(err, goredis.TxFailedErr) {
		return &docstore.StoreError{Op: "replace", Path: collection, Err: err, Temporary: true}
	}
	if err != nil {
		return classify("replace", collection, "", err)
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return classify("ping", "", "", err)
	}
	return nil
}

func classify(op, collection, key string, err error) error {
	var netErr net.Error
	temporary := errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, context.DeadlineExceeded)
	path := docstore.P(collection)
	if key != "" {
		path = path.Child(key)
	}
	return docstore.Wrap(op, path, err, temporary)
}
