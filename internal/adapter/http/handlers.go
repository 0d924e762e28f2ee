// Package http exposes the migration API: trigger a run, inspect the last
// run's report, authenticate, health.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atelier-hq/atelier/internal/domain/migration"
	"github.com/atelier-hq/atelier/internal/middleware"
	"github.com/atelier-hq/atelier/internal/service"
)

// Runner executes one migration run.
type Runner interface {
	Run(ctx context.Context, since *time.Time) (migration.Stats, error)
}

// Handlers holds the HTTP handler dependencies. Queue is nil when no event
// broker is configured.
type Handlers struct {
	Runs  Runner
	Auth  *service.AuthService
	DB    interface{ Ping(context.Context) error }
	Queue interface{ Connected() bool }
	Log   *slog.Logger

	running atomic.Bool
	lastMu  sync.Mutex
	last    *migration.Stats
}

type startRunRequest struct {
	// Since selects incremental mode; absent means a full run.
	Since *string `json:"since"`
}

type startRunResponse struct {
	Success bool            `json:"success"`
	Stats   migration.Stats `json:"stats"`
}

type fatalRunResponse struct {
	Error string          `json:"error"`
	Stats migration.Stats `json:"stats"`
}

// StartRun handles POST /api/v1/migration/runs. The run executes within the
// request; the response carries the full run report.
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[startRunRequest](w, r)
	if !ok {
		return
	}

	var since *time.Time
	if req.Since != nil {
		ts, err := time.Parse(time.RFC3339, *req.Since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = &ts
	}

	// One run at a time. Concurrent runs are safe row-by-row but would
	// interleave their resolver passes and double the source load.
	if !h.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a migration run is already in progress")
		return
	}
	defer h.running.Store(false)

	if st := middleware.StaffFromContext(r.Context()); st != nil {
		h.Log.Info("migration run requested", "staff", st.Email, "incremental", since != nil)
	}

	stats, err := h.Runs.Run(r.Context(), since)
	h.lastMu.Lock()
	h.last = &stats
	h.lastMu.Unlock()

	if err != nil {
		writeJSON(w, http.StatusInternalServerError, fatalRunResponse{Error: err.Error(), Stats: stats})
		return
	}
	writeJSON(w, http.StatusOK, startRunResponse{Success: true, Stats: stats})
}

// MigrationStatus handles GET /api/v1/migration/status, returning the last
// completed run's report. Reports are in-memory only; a restart clears them.
func (h *Handlers) MigrationStatus(w http.ResponseWriter, r *http.Request) {
	h.lastMu.Lock()
	last := h.last
	h.lastMu.Unlock()

	if last == nil {
		writeError(w, http.StatusNotFound, "no migration run recorded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running": h.running.Load(),
		"stats":   last,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[loginRequest](w, r)
	if !ok {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, expiresIn, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Log.Debug("login failed", "email", req.Email, "error", err)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresIn: expiresIn})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status, overall, pg := http.StatusOK, "ok", "up"
	if err := h.DB.Ping(r.Context()); err != nil {
		status, overall, pg = http.StatusServiceUnavailable, "degraded", "down"
	}

	queue := "disabled"
	if h.Queue != nil {
		if h.Queue.Connected() {
			queue = "up"
		} else {
			queue = "down"
		}
	}
	writeJSON(w, status, map[string]string{"status": overall, "postgres": pg, "nats": queue})
}
