package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Entry represents a single audit log entry with structured fields
type Entry struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	Actor        string            `json:"actor"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	RequestID    string            `json:"request_id,omitempty"`
	Status       string            `json:"status"` // "success" or "failure"
	Details      map[string]string `json:"details,omitempty"`
}

// Logger writes account and enrollment changes as structured audit entries
type Logger struct {
	output zerolog.Logger
}

// NewLoggerWithZerolog creates an audit logger that writes through logger
func NewLoggerWithZerolog(logger zerolog.Logger) *Logger {
	return &Logger{output: logger.With().Str("component", "audit").Logger()}
}

// Nop returns a logger that discards every entry
func Nop() *Logger {
	return &Logger{output: zerolog.Nop()}
}

// Log writes an audit entry; ID and Timestamp are filled in when empty
func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.output.Error().Err(err).Str("action", entry.Action).Msg("failed to marshal audit entry")
		return
	}
	l.output.Info().RawJSON("audit", data).Msg("audit")
}

// LogSuccess logs a successful operation, taking the client IP and request id from ctx
func (l *Logger) LogSuccess(ctx context.Context, action, actor, resourceType, resourceID string, details map[string]string) {
	l.Log(fromContext(ctx, Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       "success",
		Details:      details,
	}))
}

// LogFailure logs a rejected or failed operation
func (l *Logger) LogFailure(ctx context.Context, action, actor, resourceType, resourceID string, details map[string]string) {
	l.Log(fromContext(ctx, Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       "failure",
		Details:      details,
	}))
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	clientIPKey  contextKey = "auditClientIP"
	requestIDKey contextKey = "auditRequestID"
)

// WithRequest records the client IP and request id for entries logged under ctx
func WithRequest(ctx context.Context, clientIP, requestID string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, requestIDKey, requestID)
}

func fromContext(ctx context.Context, entry Entry) Entry {
	if ctx == nil {
		return entry
	}
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		entry.IPAddress = ip
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		entry.RequestID = id
	}
	return entry
}
