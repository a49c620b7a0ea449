// Package memory is an in-process document store used by tests and the
// "memory" backend for local development.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

// Backend keeps one JSON document per collection/key behind a mutex.
type Backend struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
}

func NewBackend() *Backend {
	return &Backend{collections: make(map[string]map[string]json.RawMessage)}
}

// New returns a ready-to-use store backed by a fresh in-memory tree.
func New() *docstore.RecordStore {
	return docstore.NewRecordStore(NewBackend())
}

func (b *Backend) LoadRecord(ctx context.Context, collection, key string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return clone(b.collections[collection][key]), nil
}

func (b *Backend) ListRecords(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(b.collections[collection]))
	for k, v := range b.collections[collection] {
		out[k] = clone(v)
	}
	return out, nil
}

func (b *Backend) MutateRecord(ctx context.Context, collection, key string, fn func(json.RawMessage) (json.RawMessage, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	next, err := fn(clone(b.collections[collection][key]))
	if err != nil {
		return err
	}
	b.put(collection, key, next)
	return nil
}

func (b *Backend) ReplaceCollection(ctx context.Context, collection string, records map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.collections, collection)
	for k, v := range records {
		b.put(collection, k, v)
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (b *Backend) put(collection, key string, raw json.RawMessage) {
	if raw == nil {
		delete(b.collections[collection], key)
		if len(b.collections[collection]) == 0 {
			delete(b.collections, collection)
		}
		return
	}
	records, ok := b.collections[collection]
	if !ok {
		records = make(map[string]json.RawMessage)
		b.collections[collection] = records
	}
	records[key] = clone(raw)
}

func clone(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
