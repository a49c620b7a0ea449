package api

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// versionResponse represents the JSON response for the /version endpoint
type versionResponse struct {
	Version      string `json:"version"`
	GitCommit    string `json:"git_commit"`
	BuildDate    string `json:"build_date"`
	GoVersion    string `json:"go_version"`
	StoreBackend string `json:"store_backend"`
}

// VersionHandler serves build metadata and the configured store backend.
// Build values come from ldflags; empty ones are reported as dev/unknown.
func VersionHandler(version, gitCommit, buildDate, storeBackend string) http.Handler {
	// Set defaults if values not provided
	if version == "" {
		version = "dev"
	}
	if gitCommit == "" {
		gitCommit = "unknown"
	}
	if buildDate == "" {
		buildDate = "unknown"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		response := versionResponse{
			Version:      version,
			GitCommit:    gitCommit,
			BuildDate:    buildDate,
			GoVersion:    runtime.Version(),
			StoreBackend: storeBackend,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	})
}
