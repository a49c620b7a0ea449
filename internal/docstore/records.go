package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

// RecordBackend is implemented by backends that persist one JSON document per
// collection/key pair. RecordStore layers the path semantics of Store and
// Conditional on top of it, so a backend only needs per-record isolation.
type RecordBackend interface {
	// LoadRecord returns (nil, nil) for an absent record.
	LoadRecord(ctx context.Context, collection, key string) (json.RawMessage, error)
	ListRecords(ctx context.Context, collection string) (map[string]json.RawMessage, error)
	// MutateRecord runs fn against the current record under the backend's
	// isolation and stores what fn returns; a nil result deletes the record.
	// Errors returned by fn abort the mutation and are returned unchanged.
	MutateRecord(ctx context.Context, collection, key string, fn func(current json.RawMessage) (json.RawMessage, error)) error
	ReplaceCollection(ctx context.Context, collection string, records map[string]json.RawMessage) error
}

// RecordStore adapts a RecordBackend to Store and Conditional.
type RecordStore struct {
	backend RecordBackend
}

func NewRecordStore(backend RecordBackend) *RecordStore {
	return &RecordStore{backend: backend}
}

var (
	_ Store       = (*RecordStore)(nil)
	_ Conditional = (*RecordStore)(nil)
	_ Pinger      = (*RecordStore)(nil)
)

func (s *RecordStore) Get(ctx context.Context, p Path) (json.RawMessage, error) {
	if err := check("get", p); err != nil {
		return nil, err
	}
	if len(p) == 1 {
		records, err := s.backend.ListRecords(ctx, p[0])
		if err != nil {
			return nil, Wrap("get", p, err, false)
		}
		if len(records) == 0 {
			return nil, nil
		}
		raw, err := json.Marshal(records)
		if err != nil {
			return nil, Wrap("get", p, err, false)
		}
		return raw, nil
	}
	raw, err := s.backend.LoadRecord(ctx, p[0], p[1])
	if err != nil {
		return nil, Wrap("get", p, err, false)
	}
	return sub(raw, p[2:], "get", p)
}

func (s *RecordStore) Set(ctx context.Context, p Path, value any) error {
	if err := check("set", p); err != nil {
		return err
	}
	node, err := Normalize(value)
	if err != nil {
		return Wrap("set", p, err, false)
	}
	if len(p) == 1 {
		return s.replaceCollection(ctx, p, node)
	}
	return s.mutate(ctx, "set", p, func(current any) (any, error) {
		return Assign(current, p[2:], node), nil
	})
}

func (s *RecordStore) Update(ctx context.Context, p Path, fields map[string]any) error {
	if err := check("update", p); err != nil {
		return err
	}
	normalized := make(map[string]any, len(fields))
	for k, v := range fields {
		if !ValidKey(k) {
			return Wrap("update", p.Child(k), ErrInvalidPath, false)
		}
		node, err := Normalize(v)
		if err != nil {
			return Wrap("update", p, err, false)
		}
		normalized[k] = node
	}
	if len(p) == 1 {
		for k, node := range normalized {
			child := p.Child(k)
			if err := s.mutate(ctx, "update", child, func(any) (any, error) { return node, nil }); err != nil {
				return err
			}
		}
		return nil
	}
	return s.mutate(ctx, "update", p, func(current any) (any, error) {
		return Merge(current, p[2:], normalized), nil
	})
}

func (s *RecordStore) Remove(ctx context.Context, p Path) error {
	if err := check("remove", p); err != nil {
		return err
	}
	if len(p) == 1 {
		return s.replaceCollection(ctx, p, nil)
	}
	return s.mutate(ctx, "remove", p, func(current any) (any, error) {
		return Assign(current, p[2:], nil), nil
	})
}

func (s *RecordStore) GetWithETag(ctx context.Context, p Path) (json.RawMessage, string, error) {
	if len(p) < 2 {
		return nil, "", Wrap("get", p, ErrUnsupported, false)
	}
	raw, err := s.Get(ctx, p)
	if err != nil {
		return nil, "", err
	}
	return raw, ETag(raw), nil
}

func (s *RecordStore) SetIfMatch(ctx context.Context, p Path, value any, etag string) error {
	if err := check("set", p); err != nil {
		return err
	}
	if len(p) < 2 {
		return Wrap("set", p, ErrUnsupported, false)
	}
	node, err := Normalize(value)
	if err != nil {
		return Wrap("set", p, err, false)
	}
	return s.mutate(ctx, "set", p, func(current any) (any, error) {
		existing, _ := Lookup(current, p[2:])
		raw, err := Encode(existing)
		if err != nil {
			return nil, err
		}
		if ETag(raw) != etag {
			return nil, ErrETagMismatch
		}
		return Assign(current, p[2:], node), nil
	})
}

// Ping delegates to the backend when it can report connectivity.
func (s *RecordStore) Ping(ctx context.Context) error {
	if pinger, ok := s.backend.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (s *RecordStore) mutate(ctx context.Context, op string, p Path, fn func(current any) (any, error)) error {
	err := s.backend.MutateRecord(ctx, p[0], p[1], func(current json.RawMessage) (json.RawMessage, error) {
		tree, err := Decode(current)
		if err != nil {
			return nil, err
		}
		next, err := fn(tree)
		if err != nil {
			return nil, err
		}
		return Encode(next)
	})
	if errors.Is(err, ErrETagMismatch) {
		return err
	}
	return Wrap(op, p, err, false)
}

func (s *RecordStore) replaceCollection(ctx context.Context, p Path, node any) error {
	records := make(map[string]json.RawMessage)
	if node != nil {
		for k, child := range asObject(node) {
			if !ValidKey(k) {
				return Wrap("set", p.Child(k), ErrInvalidPath, false)
			}
			raw, err := Encode(child)
			if err != nil {
				return Wrap("set", p, err, false)
			}
			records[k] = raw
		}
	}
	return Wrap("set", p, s.backend.ReplaceCollection(ctx, p[0], records), false)
}

func check(op string, p Path) error {
	if len(p) == 0 {
		return Wrap(op, p, ErrUnsupported, false)
	}
	if err := p.Validate(); err != nil {
		return Wrap(op, p, err, false)
	}
	return nil
}

func sub(raw json.RawMessage, rest Path, op string, p Path) (json.RawMessage, error) {
	if len(rest) == 0 || raw == nil {
		return raw, nil
	}
	tree, err := Decode(raw)
	if err != nil {
		return nil, Wrap(op, p, err, false)
	}
	node, ok := Lookup(tree, rest)
	if !ok {
		return nil, nil
	}
	out, err := Encode(node)
	if err != nil {
		return nil, Wrap(op, p, err, false)
	}
	return out, nil
}
