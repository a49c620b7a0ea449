// Package pagination encodes opaque list cursors and parses page limits.
package pagination

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrInvalidLimit  = errors.New("invalid limit")
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// EventCursor marks the last event of a page in catalog order (date, then id).
type EventCursor struct {
	Date    string
	EventID string
}

// EncodeEventCursor encodes the cursor as base64(date:event_id). Dates never
// contain a colon, so the first colon separates the two parts.
func EncodeEventCursor(date, eventID string) string {
	value := strings.TrimSpace(date) + ":" + strings.TrimSpace(eventID)
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeEventCursor decodes base64(date:event_id) into an EventCursor.
func DecodeEventCursor(cursor string) (EventCursor, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return EventCursor{}, ErrInvalidCursor
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return EventCursor{}, ErrInvalidCursor
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return EventCursor{}, ErrInvalidCursor
	}
	return EventCursor{Date: parts[0], EventID: parts[1]}, nil
}

// ParseLimit reads the limit query parameter. Missing means DefaultLimit;
// values above MaxLimit are clamped.
func ParseLimit(values url.Values) (int, error) {
	raw := strings.TrimSpace(values.Get("limit"))
	if raw == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, ErrInvalidLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, nil
}
