// Package docstore is the client-side contract for the remote hierarchical
// key-value store that holds users, events and admin codes.
//
// The store offers single-path reads and writes only. There are no multi-path
// transactions; callers that need atomic read-modify-write on one record use
// the optional Conditional interface when the backend offers it.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Store is the minimal contract every backend implements.
//
// Get returns (nil, nil) when nothing is stored at the path. Update merges
// the given children into the node at path (shallow). Remove deletes the whole
// subtree and is a no-op when the path is absent.
type Store interface {
	Get(ctx context.Context, p Path) (json.RawMessage, error)
	Set(ctx context.Context, p Path, value any) error
	Update(ctx context.Context, p Path, fields map[string]any) error
	Remove(ctx context.Context, p Path) error
}

// Conditional is implemented by backends that can compare-and-swap a node
// against the ETag observed on a previous read.
type Conditional interface {
	GetWithETag(ctx context.Context, p Path) (json.RawMessage, string, error)
	// SetIfMatch writes value only when the node still carries etag and
	// returns ErrETagMismatch otherwise. A nil value removes the node.
	SetIfMatch(ctx context.Context, p Path, value any, etag string) error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	ErrInvalidPath  = errors.New("invalid path")
	ErrETagMismatch = errors.New("etag mismatch")
	ErrUnsupported  = errors.New("operation not supported at this path depth")
)

// StoreError wraps any failure talking to the backend. Temporary marks
// failures worth retrying (timeouts, 5xx, dropped connections).
type StoreError struct {
	Op        string
	Path      string
	Err       error
	Temporary bool
}

func (e *StoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("docstore %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("docstore %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Wrap returns err as a *StoreError unless it already is one or is nil.
func Wrap(op string, p Path, err error, temporary bool) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Path: p.String(), Err: err, Temporary: temporary}
}

// IsTemporary reports whether err is a StoreError marked as retryable.
func IsTemporary(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Temporary
}

// NullETag is the tag of an absent node.
const NullETag = "null_etag"

// ETag returns the content tag for a raw JSON value: hex SHA-256 of its
// canonical encoding, or NullETag when the value is absent.
func ETag(raw json.RawMessage) string {
	if isNull(raw) {
		return NullETag
	}
	canonical, err := Canonical(raw)
	if err != nil {
		sum := sha256.Sum256(raw)
		return hex.EncodeToString(sum[:])
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Canonical re-encodes raw with sorted object keys and no insignificant
// whitespace so that equal documents compare byte-for-byte.
func Canonical(raw json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
