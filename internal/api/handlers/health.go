package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Backend   string                 `json:"backend"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type HealthChecker struct {
	store     docstore.Store
	backend   string
	version   string
	gitCommit string
}

func NewHealthChecker(store docstore.Store, backend, version, gitCommit string) *HealthChecker {
	return &HealthChecker{store: store, backend: backend, version: version, gitCommit: gitCommit}
}

// Healthz is the liveness probe; it never touches the store.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ok")
	})
}

// Readyz reports ready only while the store answers a ping.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			respondHealth(w, http.StatusServiceUnavailable, "shutting_down")
			return
		default:
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		check := h.checkStore(ctx)
		status := "healthy"
		code := http.StatusOK
		if check.Status == "fail" {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(HealthCheck{
			Status:    status,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Backend:   h.backend,
			Checks:    map[string]CheckResult{"store": check},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

// checkStore pings backends that support it and otherwise reads the admin
// code collection, the smallest node every deployment has.
func (h *HealthChecker) checkStore(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{Status: "fail", Message: "store not initialized"}
	}
	start := time.Now()
	var err error
	if pinger, ok := h.store.(docstore.Pinger); ok {
		err = pinger.Ping(ctx)
	} else {
		_, err = h.store.Get(ctx, docstore.P(docstore.AdminCodes))
	}
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{Status: "fail", Message: err.Error(), LatencyMs: latency}
	}
	return CheckResult{Status: "pass", Message: h.backend + " reachable", LatencyMs: latency}
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, status int, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: value})
}
