package http

import (
	"net/http"
	"time"

	"github.com/cartworks/auth/internal/auth/kv"
	"github.com/cartworks/auth/internal/auth/store"
	"github.com/cartworks/auth/pkg/authclient"
	"github.com/cartworks/auth/pkg/httpx"
)

// LivezHandler is the liveness probe. It answers 200 whenever the
// process is up; dependency state is readyz's job.
func LivezHandler(version string, startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authclient.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler is the readiness probe. It pings the user database and
// the shared KV store and reports 503 if either is unreachable.
func ReadyzHandler(st store.Store, kvStore kv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authclient.HealthChecks{
			Database: "ok",
			KV:       "ok",
		}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if err := kvStore.Ping(r.Context()); err != nil {
			checks.KV = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, authclient.HealthResponse{
			Status: status,
			Checks: checks,
		})
	}
}
