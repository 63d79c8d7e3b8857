package dynatrace

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestProblemsQueryParams(t *testing.T) {
	var calls int32
	var gotPath, gotSelector, gotFrom, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotPath = r.URL.Path
		gotSelector = r.URL.Query().Get("problemSelector")
		gotFrom = r.URL.Query().Get("from")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(ProblemList{TotalCount: 0})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dt0c01.token", time.Second)
	_, err := c.Problems(context.Background(), ProblemQuery{
		Status:   "OPEN",
		Severity: "ERROR",
		From:     "now-1h",
	})
	if err != nil {
		t.Fatalf("Problems: %v", err)
	}

	if calls != 1 {
		t.Errorf("got %d requests, want 1", calls)
	}
	if gotPath != "/api/v2/problems" {
		t.Errorf("path = %q, want /api/v2/problems", gotPath)
	}
	if want := `status("OPEN"),severityLevel("ERROR")`; gotSelector != want {
		t.Errorf("problemSelector = %q, want %q", gotSelector, want)
	}
	if gotFrom != "now-1h" {
		t.Errorf("from = %q, want now-1h", gotFrom)
	}
	if want := "Api-Token dt0c01.token"; gotAuth != want {
		t.Errorf("Authorization = %q, want %q", gotAuth, want)
	}
}

func TestProblemsDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") != "now-24h" {
			t.Errorf("from = %q, want now-24h", q.Get("from"))
		}
		if q.Get("pageSize") != "50" {
			t.Errorf("pageSize = %q, want 50", q.Get("pageSize"))
		}
		if q.Get("problemSelector") != "" {
			t.Errorf("unexpected problemSelector %q", q.Get("problemSelector"))
		}
		json.NewEncoder(w).Encode(ProblemList{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	if _, err := c.Problems(context.Background(), ProblemQuery{}); err != nil {
		t.Fatalf("Problems: %v", err)
	}
}

func TestProblemResolvesDisplayID(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/api/v2/problems":
			if got, want := r.URL.Query().Get("problemSelector"), `displayId("P-12345")`; got != want {
				t.Errorf("problemSelector = %q, want %q", got, want)
			}
			if got := r.URL.Query().Get("from"); got != "now-90d" {
				t.Errorf("from = %q, want now-90d", got)
			}
			json.NewEncoder(w).Encode(ProblemList{
				TotalCount: 1,
				Problems:   []Problem{{ProblemID: "8557652094669123811_1696150500000V2", DisplayID: "P-12345"}},
			})
		case "/api/v2/problems/8557652094669123811_1696150500000V2":
			if got := r.URL.Query().Get("fields"); got != problemDetailFields {
				t.Errorf("fields = %q, want %q", got, problemDetailFields)
			}
			json.NewEncoder(w).Encode(Problem{
				ProblemID: "8557652094669123811_1696150500000V2",
				DisplayID: "P-12345",
				Title:     "High CPU on host-1",
				Status:    "OPEN",
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	p, err := c.Problem(context.Background(), "p-12345")
	if err != nil {
		t.Fatalf("Problem: %v", err)
	}
	if p.Title != "High CPU on host-1" {
		t.Errorf("Title = %q", p.Title)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d requests %v, want 2 (lookup + detail)", len(paths), paths)
	}
}

func TestProblemInternalIDSingleCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/api/v2/problems/123_456V2" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Problem{ProblemID: "123_456V2", Status: "CLOSED"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	if _, err := c.Problem(context.Background(), "123_456V2"); err != nil {
		t.Fatalf("Problem: %v", err)
	}
	if calls != 1 {
		t.Errorf("got %d requests, want 1", calls)
	}
}

func TestProblemDisplayIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ProblemList{TotalCount: 0})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	_, err := c.Problem(context.Background(), "P-99999")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type %T, want *APIError", err)
	}
	if !apiErr.IsNotFound() {
		t.Errorf("Status = %d, want 404", apiErr.Status)
	}
}

func TestErrorBodyParsing(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"Token is missing required scope problems.read"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	_, err := c.Problems(context.Background(), ProblemQuery{})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type %T, want *APIError", err)
	}
	if !apiErr.IsAuth() {
		t.Errorf("IsAuth() = false for status %d", apiErr.Status)
	}
	if apiErr.Message != "Token is missing required scope problems.read" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if calls != 1 {
		t.Errorf("got %d requests, want 1 (no retry on error)", calls)
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		json.NewEncoder(w).Encode(ProblemList{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", 50*time.Millisecond)
	_, err := c.Problems(context.Background(), ProblemQuery{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type %T, want *APIError", err)
	}
	if !apiErr.Timeout {
		t.Errorf("Timeout = false, err = %v", err)
	}
}

func TestBaseURLNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", "https://abc.live.dynatrace.com", "https://abc.live.dynatrace.com/api/v2"},
		{"trailing slash", "https://abc.live.dynatrace.com/", "https://abc.live.dynatrace.com/api/v2"},
		{"already suffixed", "https://abc.live.dynatrace.com/api/v2", "https://abc.live.dynatrace.com/api/v2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.in, "t", time.Second)
			if c.baseURL != tt.want {
				t.Errorf("baseURL = %q, want %q", c.baseURL, tt.want)
			}
		})
	}
}

func TestReleasesSelector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got, want := q.Get("releasesSelector"), `affectedEntities(entityId("HOST-1"))`; got != want {
			t.Errorf("releasesSelector = %q, want %q", got, want)
		}
		if q.Get("from") != "now-7d" {
			t.Errorf("from = %q, want now-7d", q.Get("from"))
		}
		json.NewEncoder(w).Encode(ReleaseList{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	if _, err := c.Releases(context.Background(), ReleaseQuery{EntitySelector: `entityId("HOST-1")`}); err != nil {
		t.Fatalf("Releases: %v", err)
	}
}

func TestMetricsQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("metricSelector") != "builtin:host.cpu.usage:avg" {
			t.Errorf("metricSelector = %q", q.Get("metricSelector"))
		}
		if q.Get("resolution") != "10m" {
			t.Errorf("resolution = %q, want 10m", q.Get("resolution"))
		}
		if q.Get("entitySelector") != `type("HOST")` {
			t.Errorf("entitySelector = %q", q.Get("entitySelector"))
		}
		json.NewEncoder(w).Encode(MetricQueryResult{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	_, err := c.Metrics(context.Background(), MetricQuery{
		Selector:       "builtin:host.cpu.usage:avg",
		EntitySelector: `type("HOST")`,
		Resolution:     "10m",
	})
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
}

func TestEntitiesDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("entitySelector") != `type("SERVICE")` {
			t.Errorf("entitySelector = %q", q.Get("entitySelector"))
		}
		if q.Get("from") != "now-2h" {
			t.Errorf("from = %q, want now-2h", q.Get("from"))
		}
		json.NewEncoder(w).Encode(EntityList{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	if _, err := c.Entities(context.Background(), EntityQuery{Selector: `type("SERVICE")`}); err != nil {
		t.Fatalf("Entities: %v", err)
	}
}

func TestEntityTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/entityTypes" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(EntityTypeList{TotalCount: 2, Types: []EntityType{{Type: "HOST"}, {Type: "SERVICE"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	list, err := c.EntityTypes(context.Background())
	if err != nil {
		t.Fatalf("EntityTypes: %v", err)
	}
	if len(list.Types) != 2 {
		t.Errorf("got %d types, want 2", len(list.Types))
	}
}
