package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

// ErrInjected is the cause carried by failures produced by Failing.
var ErrInjected = errors.New("injected failure")

// Failing wraps a store and fails calls selected by Fail. A nil Fail never
// fails. Calls counts every operation that reached the wrapper.
type Failing struct {
	docstore.Store
	Fail  func(op string, p docstore.Path) bool
	Calls atomic.Int64
}

// FailAll returns a Failing store that rejects every call.
func FailAll(inner docstore.Store) *Failing {
	return &Failing{Store: inner, Fail: func(string, docstore.Path) bool { return true }}
}

// FailWrites returns a Failing store whose writes under collection fail.
func FailWrites(inner docstore.Store, collection string) *Failing {
	return &Failing{Store: inner, Fail: func(op string, p docstore.Path) bool {
		return op != "get" && p.Collection() == collection
	}}
}

func (f *Failing) err(op string, p docstore.Path) error {
	f.Calls.Add(1)
	if f.Fail != nil && f.Fail(op, p) {
		return &docstore.StoreError{Op: op, Path: p.String(), Err: ErrInjected, Temporary: true}
	}
	return nil
}

func (f *Failing) Get(ctx context.Context, p docstore.Path) (json.RawMessage, error) {
	if err := f.err("get", p); err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, p)
}

func (f *Failing) Set(ctx context.Context, p docstore.Path, value any) error {
	if err := f.err("set", p); err != nil {
		return err
	}
	return f.Store.Set(ctx, p, value)
}

func (f *Failing) Update(ctx context.Context, p docstore.Path, fields map[string]any) error {
	if err := f.err("update", p); err != nil {
		return err
	}
	return f.Store.Update(ctx, p, fields)
}

func (f *Failing) Remove(ctx context.Context, p docstore.Path) error {
	if err := f.err("remove", p); err != nil {
		return err
	}
	return f.Store.Remove(ctx, p)
}
