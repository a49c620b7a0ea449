package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/memory"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/storetest"
)

const testSecret = "s3cret"

// emulator serves the REST protocol from an in-memory tree.
type emulator struct {
	store    *docstore.RecordStore
	failNext atomic.Int32
}

func (e *emulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("auth") != testSecret {
		writeError(w, http.StatusUnauthorized, "Permission denied")
		return
	}
	if e.failNext.Load() > 0 {
		e.failNext.Add(-1)
		writeError(w, http.StatusServiceUnavailable, "overloaded")
		return
	}
	if !strings.HasSuffix(r.URL.Path, ".json") {
		writeError(w, http.StatusBadRequest, "missing .json")
		return
	}
	p, err := docstore.ParsePath(strings.TrimSuffix(r.URL.Path, ".json"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	body, _ := io.ReadAll(r.Body)

	if ifMatch := r.Header.Get("if-match"); ifMatch != "" {
		var value any
		if r.Method == http.MethodPut {
			value = json.RawMessage(body)
		}
		err := e.store.SetIfMatch(ctx, p, value, ifMatch)
		if errors.Is(err, docstore.ErrETagMismatch) {
			raw, etag, _ := e.store.GetWithETag(ctx, p)
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusPreconditionFailed)
			_, _ = w.Write(orNull(raw))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_, _ = w.Write(body)
		return
	}

	switch r.Method {
	case http.MethodGet:
		raw, err := e.store.Get(ctx, p)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if r.Header.Get("X-Firebase-ETag") == "true" {
			w.Header().Set("ETag", docstore.ETag(raw))
		}
		_, _ = w.Write(orNull(raw))
	case http.MethodPut:
		err = e.store.Set(ctx, p, json.RawMessage(body))
		e.reply(w, err, body)
	case http.MethodPatch:
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid data")
			return
		}
		e.reply(w, e.store.Update(ctx, p, fields), body)
	case http.MethodDelete:
		e.reply(w, e.store.Remove(ctx, p), []byte("null"))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (e *emulator) reply(w http.ResponseWriter, err error, body []byte) {
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_, _ = w.Write(body)
}

func orNull(raw json.RawMessage) []byte {
	if raw == nil {
		return []byte("null")
	}
	return raw
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func newTestClient(t *testing.T) (*Client, *emulator) {
	t.Helper()
	emu := &emulator{store: memory.New()}
	srv := httptest.NewServer(emu)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, testSecret, srv.Client())
	require.NoError(t, err)
	return client, emu
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		client, _ := newTestClient(t)
		return client
	})
}

func TestNewRejectsInvalidURL(t *testing.T) {
	_, err := New("not a url", "", nil)
	require.Error(t, err)
}

func TestUnauthorizedIsPermanentStoreError(t *testing.T) {
	client, _ := newTestClient(t)
	client.authToken = "wrong"

	_, err := client.Get(context.Background(), docstore.UserPath("alice"))
	var se *docstore.StoreError
	require.ErrorAs(t, err, &se)
	require.False(t, se.Temporary)
	require.Contains(t, se.Error(), "Permission denied")
}

func TestServerErrorIsTemporary(t *testing.T) {
	client, emu := newTestClient(t)
	emu.failNext.Store(1)

	err := client.Set(context.Background(), docstore.UserPath("alice"), map[string]any{"Password": "pw"})
	require.True(t, docstore.IsTemporary(err))
}

func TestInstrumentedClientRetriesTemporaryFailures(t *testing.T) {
	client, emu := newTestClient(t)
	emu.failNext.Store(2)

	store := docstore.Instrument(client, zerolog.Nop(), docstore.InstrumentOptions{Backend: "rtdb", MaxTries: 3, InitialBackoff: 1})
	require.NoError(t, store.Set(context.Background(), docstore.UserPath("alice"), map[string]any{"Password": "pw"}))

	raw, err := store.Get(context.Background(), docstore.UserPath("alice"))
	require.NoError(t, err)
	require.JSONEq(t, `{"Password":"pw"}`, string(raw))

	_, ok := store.(docstore.Conditional)
	require.True(t, ok, "instrumented rtdb client keeps conditional writes")
}

func TestPing(t *testing.T) {
	client, _ := newTestClient(t)
	require.NoError(t, client.Ping(context.Background()))
}

func TestTransportErrorsDoNotLeakAuthToken(t *testing.T) {
	client, err := New("http://127.0.0.1:1", "SUPERSECRET", nil)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), docstore.UserPath("alice"))
	require.Error(t, err)
	require.True(t, docstore.IsTemporary(err))
	require.NotContains(t, err.Error(), "SUPERSECRET")
	require.Contains(t, err.Error(), "127.0.0.1:1/Users/alice.json")
}
