package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-hq/atelier/internal/config"
	"github.com/atelier-hq/atelier/internal/domain"
	"github.com/atelier-hq/atelier/internal/domain/migration"
	"github.com/atelier-hq/atelier/internal/domain/record"
	"github.com/atelier-hq/atelier/internal/middleware"
	"github.com/atelier-hq/atelier/internal/service"
)

type fakeRunner struct {
	stats   migration.Stats
	err     error
	since   *time.Time
	calls   int
	started chan struct{}
	release chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, since *time.Time) (migration.Stats, error) {
	f.calls++
	f.since = since
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.stats, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

// staffStub backs the login handler tests.
type staffStub struct{ byEmail map[string]*record.Staff }

func (s *staffStub) CreateStaff(_ context.Context, email, name, hash string, isAdmin bool) (*record.Staff, error) {
	st := &record.Staff{ID: uuid.New(), Email: email, Name: name, PasswordHash: hash, IsAdmin: isAdmin}
	s.byEmail[email] = st
	return st, nil
}

func (s *staffStub) StaffByEmail(_ context.Context, email string) (*record.Staff, error) {
	st, ok := s.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return st, nil
}

func (s *staffStub) StaffBySessionHash(context.Context, string) (*record.Staff, error) {
	return nil, domain.ErrNotFound
}

func (s *staffStub) CreateStaffSession(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (s *staffStub) UpdateStaffPassword(context.Context, string, string) error {
	return domain.ErrNotFound
}

func (s *staffStub) ListStaff(context.Context) ([]record.Staff, error) { return nil, nil }

func newTestHandlers(runner *fakeRunner) (*Handlers, *service.AuthService) {
	auth := service.NewAuthService(
		&staffStub{byEmail: make(map[string]*record.Staff)},
		&config.Auth{TokenSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: 4},
	)
	h := &Handlers{
		Runs: runner,
		Auth: auth,
		DB:   fakePinger{},
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h, auth
}

func TestStartRunFull(t *testing.T) {
	runner := &fakeRunner{stats: migration.Stats{Mode: migration.ModeFull}}
	h, _ := newTestHandlers(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/migration/runs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.StartRun(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if runner.since != nil {
		t.Errorf("since = %v, want nil for a full run", runner.since)
	}
	var resp startRunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Stats.Mode != migration.ModeFull {
		t.Errorf("response = %+v", resp)
	}
}

func TestStartRunIncremental(t *testing.T) {
	runner := &fakeRunner{stats: migration.Stats{Mode: migration.ModeIncremental}}
	h, _ := newTestHandlers(runner)

	body := `{"since":"2024-03-01T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/migration/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.StartRun(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if runner.since == nil || !runner.since.Equal(want) {
		t.Errorf("since = %v, want %v", runner.since, want)
	}
}

func TestStartRunBadSince(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newTestHandlers(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/migration/runs", strings.NewReader(`{"since":"yesterday"}`))
	rec := httptest.NewRecorder()
	h.StartRun(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if runner.calls != 0 {
		t.Errorf("runner called %d times on invalid input", runner.calls)
	}
}

func TestStartRunFatalReturns500WithStats(t *testing.T) {
	runner := &fakeRunner{
		stats: migration.Stats{Mode: migration.ModeFull, Fatal: "panic: constraint violation"},
		err:   errors.New("migration run aborted"),
	}
	h, _ := newTestHandlers(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/migration/runs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.StartRun(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp fatalRunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" || resp.Stats.Fatal == "" {
		t.Errorf("fatal response must carry the error and partial stats: %+v", resp)
	}
}

func TestStartRunRejectsConcurrent(t *testing.T) {
	runner := &fakeRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	h, _ := newTestHandlers(runner)

	done := make(chan struct{})
	go func() {
		defer close(done)
		rec := httptest.NewRecorder()
		h.StartRun(rec, httptest.NewRequest(http.MethodPost, "/api/v1/migration/runs", strings.NewReader(`{}`)))
	}()
	<-runner.started

	rec := httptest.NewRecorder()
	h.StartRun(rec, httptest.NewRequest(http.MethodPost, "/api/v1/migration/runs", strings.NewReader(`{}`)))
	if rec.Code != http.StatusConflict {
		t.Errorf("concurrent run status = %d, want 409", rec.Code)
	}

	close(runner.release)
	<-done
}

func TestMigrationStatus(t *testing.T) {
	runner := &fakeRunner{stats: migration.Stats{Mode: migration.ModeFull, ErrorCount: 2}}
	h, _ := newTestHandlers(runner)

	rec := httptest.NewRecorder()
	h.MigrationStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/migration/status", http.NoBody))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status before any run = %d, want 404", rec.Code)
	}

	runRec := httptest.NewRecorder()
	h.StartRun(runRec, httptest.NewRequest(http.MethodPost, "/api/v1/migration/runs", strings.NewReader(`{}`)))

	rec = httptest.NewRecorder()
	h.MigrationStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/migration/status", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status after a run = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"errorCount":2`) {
		t.Errorf("status body missing last report: %s", rec.Body)
	}
}

func TestLoginHandler(t *testing.T) {
	h, auth := newTestHandlers(&fakeRunner{})
	if _, err := auth.CreateStaff(context.Background(), "ops@atelier.test", "Ops", "hunter22", true); err != nil {
		t.Fatalf("create staff: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ops@atelier.test","password":"hunter22"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" || resp.ExpiresIn != 3600 {
		t.Errorf("response = %+v", resp)
	}

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ops@atelier.test","password":"wrong"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", rec.Code)
	}
}

func TestRouterGatesMigrationRoutes(t *testing.T) {
	h, auth := newTestHandlers(&fakeRunner{stats: migration.Stats{Mode: migration.ModeFull}})
	srvCfg := config.Server{CORSOrigin: "http://localhost:3000", RequestTimeout: time.Minute}
	router := NewRouter(h, auth, middleware.NewRateLimiter(100, 100), srvCfg, "atelier-test")
	srv := httptest.NewServer(router)
	defer srv.Close()

	// Health is public.
	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	// Triggering a run without credentials must fail before the runner.
	resp, err = srv.Client().Post(srv.URL+"/api/v1/migration/runs", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated run status = %d, want 401", resp.StatusCode)
	}
	if h.Runs.(*fakeRunner).calls != 0 {
		t.Error("runner must not execute for an unauthorized caller")
	}
}
