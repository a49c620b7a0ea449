package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/audit"
)

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestCorrelationID(t *testing.T) {
	var got string
	handler := CorrelationID(nopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	handler.ServeHTTP(res, req)
	require.Equal(t, "abc-123", got)
	require.Equal(t, "abc-123", res.Header().Get("X-Request-ID"))

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	require.NotEmpty(t, got)
	require.NotEqual(t, "abc-123", got)
	require.Equal(t, got, res.Header().Get("X-Request-ID"))
}

func TestCorrelationIDFeedsAuditAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	auditLogger := audit.NewLoggerWithZerolog(logger)

	handler := CorrelationID(logger, "10.0.0.0/8")(RequestLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auditLogger.LogSuccess(r.Context(), "account.login", "alice", "user", "alice", nil)
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.Header.Set("X-Request-ID", "req-9")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var auditLine struct {
		Audit audit.Entry `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(lines[0], &auditLine))
	require.Equal(t, "198.51.100.1", auditLine.Audit.IPAddress)
	require.Equal(t, "req-9", auditLine.Audit.RequestID)

	var requestLine map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &requestLine))
	require.Equal(t, "warn", requestLine["level"])
	require.Equal(t, "req-9", requestLine["request_id"])
	require.EqualValues(t, http.StatusTeapot, requestLine["status"])
}

func TestLoggerFromContextFallsBackToNop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	logger := LoggerFromContext(req.Context())
	require.NotNil(t, logger)
	logger.Info().Msg("discarded")
}
