package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/atelier-hq/atelier/internal/config"
	"github.com/atelier-hq/atelier/internal/domain/migration"
	"github.com/atelier-hq/atelier/internal/resilience"
)

func testClient(t *testing.T, baseURL string, pageSize int, interval time.Duration) *Client {
	t.Helper()
	cfg := config.Source{
		BaseURL:     baseURL,
		APIToken:    "test-token",
		PageSize:    pageSize,
		MinInterval: interval,
		Timeout:     5 * time.Second,
	}
	return NewClient(cfg, resilience.NewPacer(interval), resilience.NewBreaker(5, time.Second))
}

// recordsHandler serves total fixture records in pageSize slices, honoring
// the cursor parameter the way the legacy API does.
func recordsHandler(t *testing.T, total int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		cursor, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			t.Errorf("missing limit parameter")
			limit = total
		}

		results := make([]map[string]any, 0, limit)
		for i := cursor; i < total && i < cursor+limit; i++ {
			results = append(results, map[string]any{"_id": fmt.Sprintf("rec-%d", i)})
		}
		remaining := total - cursor - len(results)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":   results,
			"remaining": remaining,
		})
	}
}

func TestFetchAllPaginates(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		recordsHandler(t, 5)(w, r)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 2, 0)
	records, err := c.FetchAll(context.Background(), migration.EntityCustomer, nil)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	if got := records[4].ForeignID(); got != "rec-4" {
		t.Errorf("expected last record rec-4, got %q", got)
	}
	if len(paths) != 3 {
		t.Errorf("expected 3 page requests, got %d", len(paths))
	}
	for _, p := range paths {
		if p != "/api/v1/records/customer" {
			t.Errorf("unexpected request path %q", p)
		}
	}
}

func TestFetchAllSendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		recordsHandler(t, 1)(w, r)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 10, 0)
	if _, err := c.FetchAll(context.Background(), migration.EntityPerson, nil); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if auth != "Bearer test-token" {
		t.Errorf("expected bearer token header, got %q", auth)
	}
}

func TestFetchAllIncrementalConstraint(t *testing.T) {
	var rawConstraints string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawConstraints = r.URL.Query().Get("constraints")
		recordsHandler(t, 1)(w, r)
	}))
	defer srv.Close()

	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := testClient(t, srv.URL, 10, 0)
	if _, err := c.FetchAll(context.Background(), migration.EntityProject, &since); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	var got []constraint
	if err := json.Unmarshal([]byte(rawConstraints), &got); err != nil {
		t.Fatalf("parse constraints %q: %v", rawConstraints, err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 constraint, got %d", len(got))
	}
	want := constraint{Key: "modified_date", ConstraintType: "greater than", Value: "2024-03-01T12:00:00Z"}
	if got[0] != want {
		t.Errorf("constraint = %+v, want %+v", got[0], want)
	}
}

func TestFetchAllFullRunHasNoConstraint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("constraints") {
			t.Errorf("full run must not send constraints")
		}
		recordsHandler(t, 1)(w, r)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 10, 0)
	if _, err := c.FetchAll(context.Background(), migration.EntityProject, nil); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
}

func TestFetchAllEmptyPageSafetyValve(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Inconsistent server: claims records remain but returns none.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":   []any{},
			"remaining": 42,
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 10, 0)
	records, err := c.FetchAll(context.Background(), migration.EntityContact, nil)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
	if calls != 1 {
		t.Errorf("expected a single request, got %d", calls)
	}
}

func TestFetchAllPageFailureReturnsAccumulated(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
			return
		}
		recordsHandler(t, 4)(w, r)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 2, 0)
	records, err := c.FetchAll(context.Background(), migration.EntityScheduleEvent, nil)
	if err == nil {
		t.Fatal("expected a fetch error")
	}
	if len(records) != 2 {
		t.Fatalf("expected the first page to be kept, got %d records", len(records))
	}
	if !strings.Contains(err.Error(), "cursor 2") {
		t.Errorf("error should cite the failing cursor: %v", err)
	}
	if !strings.Contains(err.Error(), "schedule_event") {
		t.Errorf("error should cite the entity type: %v", err)
	}
}

func TestFetchAllBreakerShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config.Source{BaseURL: srv.URL, PageSize: 10, Timeout: 5 * time.Second}
	breaker := resilience.NewBreaker(1, time.Minute)
	c := NewClient(cfg, resilience.NewPacer(0), breaker)

	if _, err := c.FetchAll(context.Background(), migration.EntityPerson, nil); err == nil {
		t.Fatal("expected a fetch error")
	}
	if _, err := c.FetchAll(context.Background(), migration.EntityCustomer, nil); err == nil {
		t.Fatal("expected the open breaker to reject the fetch")
	}
	if calls != 1 {
		t.Errorf("expected 1 request before the breaker opened, got %d", calls)
	}
}

func TestFetchAllPacesRequests(t *testing.T) {
	srv := httptest.NewServer(recordsHandler(t, 6))
	defer srv.Close()

	c := testClient(t, srv.URL, 2, 25*time.Millisecond)
	start := time.Now()
	if _, err := c.FetchAll(context.Background(), migration.EntityOrganization, nil); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	// Three pages: the second and third each wait out the floor.
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected at least 50ms of pacing, finished in %v", elapsed)
	}
}
