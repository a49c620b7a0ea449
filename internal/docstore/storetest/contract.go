// Package storetest holds the behavioural contract every docstore backend
// must satisfy, plus small helpers for tests that need a misbehaving store.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

// Run executes the contract against stores produced by open. Each subtest
// receives a fresh, empty store.
func Run(t *testing.T, open func(t *testing.T) docstore.Store) {
	t.Helper()

	t.Run("get absent returns nil", func(t *testing.T) {
		s := open(t)
		raw, err := s.Get(context.Background(), docstore.UserPath("nobody"))
		require.NoError(t, err)
		require.Nil(t, raw)
	})

	t.Run("set then get record", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, docstore.UserPath("alice"), map[string]any{"Password": "pw", "Admin": false}))

		raw, err := s.Get(ctx, docstore.UserPath("alice"))
		require.NoError(t, err)
		require.JSONEq(t, `{"Password":"pw","Admin":false}`, string(raw))

		raw, err = s.Get(ctx, docstore.UserPath("alice").Child("Password"))
		require.NoError(t, err)
		require.JSONEq(t, `"pw"`, string(raw))
	})

	t.Run("set overwrites whole node", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, docstore.UserPath("alice"), map[string]any{"Password": "pw", "enrolled_events": []string{"1"}}))
		require.NoError(t, s.Set(ctx, docstore.UserPath("alice"), map[string]any{"Password": "other"}))

		raw, err := s.Get(ctx, docstore.UserPath("alice"))
		require.NoError(t, err)
		require.JSONEq(t, `{"Password":"other"}`, string(raw))
	})

	t.Run("set nested path creates parents", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, docstore.P(docstore.Events, "7", "company_name"), "Red Cross"))

		raw, err := s.Get(ctx, docstore.EventPath("7"))
		require.NoError(t, err)
		require.JSONEq(t, `{"company_name":"Red Cross"}`, string(raw))
	})

	t.Run("update merges shallow", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, docstore.UserPath("bob"), map[string]any{"Password": "a", "Admin": true}))
		require.NoError(t, s.Update(ctx, docstore.UserPath("bob"), map[string]any{"Password": "b"}))

		raw, err := s.Get(ctx, docstore.UserPath("bob"))
		require.NoError(t, err)
		require.JSONEq(t, `{"Password":"b","Admin":true}`, string(raw))
	})

	t.Run("update with nil removes child", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, docstore.UserPath("bob"), map[string]any{"Password": "a", "Admin": true}))
		require.NoError(t, s.Update(ctx, docstore.UserPath("bob"), map[string]any{"Admin": nil}))

		raw, err := s.Get(ctx, docstore.UserPath("bob"))
		require.NoError(t, err)
		require.JSONEq(t, `{"Password":"a"}`, string(raw))
	})

	t.Run("remove subtree", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, docstore.UserPath("carol"), map[string]any{"Password": "a"}))
		require.NoError(t, s.Remove(ctx, docstore.UserPath("carol")))
		require.NoError(t, s.Remove(ctx, docstore.UserPath("carol")))

		raw, err := s.Get(ctx, docstore.UserPath("carol"))
		require.NoError(t, err)
		require.Nil(t, raw)
	})

	t.Run("collection read assembles records", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, docstore.P(docstore.AdminCodes, "a"), "X1"))
		require.NoError(t, s.Set(ctx, docstore.P(docstore.AdminCodes, "b"), "X2"))

		raw, err := s.Get(ctx, docstore.P(docstore.AdminCodes))
		require.NoError(t, err)
		children, err := docstore.Children(raw)
		require.NoError(t, err)
		require.Len(t, children, 2)
		require.JSONEq(t, `"X2"`, string(children["b"]))
	})

	t.Run("collection set accepts arrays with null slots", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		events := []any{nil, map[string]any{"name": "Run"}, map[string]any{"name": "Bake"}}
		require.NoError(t, s.Set(ctx, docstore.P(docstore.Events), events))

		raw, err := s.Get(ctx, docstore.EventPath("2"))
		require.NoError(t, err)
		require.JSONEq(t, `{"name":"Bake"}`, string(raw))

		all, err := s.Get(ctx, docstore.P(docstore.Events))
		require.NoError(t, err)
		children, err := docstore.Children(all)
		require.NoError(t, err)
		require.Len(t, children, 2)
	})

	t.Run("invalid path is a store error", func(t *testing.T) {
		s := open(t)
		err := s.Set(context.Background(), docstore.UserPath("a.b"), "x")
		require.Error(t, err)
		require.True(t, errors.Is(err, docstore.ErrInvalidPath))
		var se *docstore.StoreError
		require.ErrorAs(t, err, &se)
	})

	t.Run("conditional write", func(t *testing.T) {
		s := open(t)
		cond, ok := s.(docstore.Conditional)
		if !ok {
			t.Skip("store does not support conditional writes")
		}
		ctx := context.Background()
		p := docstore.UserPath("dave")

		raw, etag, err := cond.GetWithETag(ctx, p)
		require.NoError(t, err)
		require.Nil(t, raw)
		require.NoError(t, cond.SetIfMatch(ctx, p, map[string]any{"Password": "1"}, etag))

		raw, etag, err = cond.GetWithETag(ctx, p)
		require.NoError(t, err)
		require.JSONEq(t, `{"Password":"1"}`, string(raw))

		require.NoError(t, s.Update(ctx, p, map[string]any{"Password": "2"}))
		err = cond.SetIfMatch(ctx, p, map[string]any{"Password": "3"}, etag)
		require.ErrorIs(t, err, docstore.ErrETagMismatch)

		got, err := s.Get(ctx, p)
		require.NoError(t, err)
		var rec map[string]any
		require.NoError(t, json.Unmarshal(got, &rec))
		require.Equal(t, "2", rec["Password"])
	})
}
