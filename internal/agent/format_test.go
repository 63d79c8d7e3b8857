package agent

import (
	"strings"
	"testing"

	"github.com/okhotin/dynagent/internal/dynatrace"
)

func TestFormatProblemList(t *testing.T) {
	list := &dynatrace.ProblemList{
		TotalCount: 12,
		Problems: []dynatrace.Problem{
			{DisplayID: "P-1", Title: "Response time degradation", Status: "OPEN", SeverityLevel: "PERFORMANCE"},
			{DisplayID: "P-2", Title: "Host unavailable", Status: "CLOSED", SeverityLevel: "AVAILABILITY"},
		},
	}

	want := "Dynatrace Problems (12 total)\n\n" +
		"[OPEN] P-1 - Response time degradation [PERFORMANCE]\n" +
		"[CLOSED] P-2 - Host unavailable [AVAILABILITY]\n\n" +
		"... and 2 more problems"

	got := formatProblemList(list)
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	// Same input, same bytes.
	if again := formatProblemList(list); again != got {
		t.Error("output not stable across calls")
	}
}

func TestFormatProblemListEmpty(t *testing.T) {
	got := formatProblemList(&dynatrace.ProblemList{})
	want := "No problems found in the specified timeframe."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatProblem(t *testing.T) {
	p := &dynatrace.Problem{
		DisplayID:     "P-9",
		Title:         "Disk full",
		Status:        "OPEN",
		SeverityLevel: "RESOURCE_CONTENTION",
		ImpactLevel:   "INFRASTRUCTURE",
		StartTime:     1700000000000,
		EndTime:       -1,
		AffectedEntities: []dynatrace.EntityStub{
			{Name: "db-host"},
			{EntityID: dynatrace.EntityRef{ID: "HOST-2", Name: "cache-host"}},
			{EntityID: dynatrace.EntityRef{ID: "HOST-3"}},
		},
	}

	got := formatProblem(p)
	for _, want := range []string{
		"Problem P-9: Disk full",
		"Status: OPEN",
		"Severity: RESOURCE_CONTENTION",
		"Started: 2023-11-14 22:13:20",
		"Ended: Ongoing",
		"Affected entities (3):",
		"  - db-host",
		"  - cache-host",
		"  - HOST-3",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestFormatProblemNoEntities(t *testing.T) {
	p := &dynatrace.Problem{DisplayID: "P-1", Title: "x", EndTime: 1700000000000}
	got := formatProblem(p)
	if !strings.Contains(got, "  - none identified") {
		t.Errorf("output missing placeholder:\n%s", got)
	}
	if !strings.Contains(got, "Ended: 2023-11-14 22:13:20") {
		t.Errorf("closed problem should show end time:\n%s", got)
	}
}

func TestFormatTopology(t *testing.T) {
	list := &dynatrace.EntityList{
		TotalCount: 1,
		Entities: []dynatrace.Entity{{
			EntityID:    "SERVICE-1",
			DisplayName: "checkout",
			FromRelationships: map[string][]dynatrace.EntityRef{
				"dependsOn": {{Name: "postgres"}},
				"calls":     {{ID: "SERVICE-2", Name: "payment"}, {ID: "SERVICE-3"}},
			},
			ToRelationships: map[string][]dynatrace.EntityRef{
				"calledBy": {{Name: "frontend"}},
			},
			Tags: []dynatrace.Tag{{Key: "env", Value: "prod"}},
		}},
	}

	want := "Topology: SERVICE (1 total)\n\n" +
		"checkout (SERVICE-1)\n" +
		"  -> calls: payment, SERVICE-3\n" +
		"  -> dependsOn: postgres\n" +
		"  <- calledBy: frontend\n" +
		"  Tags: env:prod"

	got := formatTopology(list, "SERVICE")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	// Relationship types come from a map; the sort must keep the output
	// stable.
	for i := 0; i < 5; i++ {
		if again := formatTopology(list, "SERVICE"); again != got {
			t.Fatalf("run %d: output not stable", i)
		}
	}
}

func TestFormatTopologyEmpty(t *testing.T) {
	got := formatTopology(&dynatrace.EntityList{}, "HOST")
	want := "No HOST entities found matching criteria."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatMetrics(t *testing.T) {
	v1, v2 := 40.0, 45.5
	res := &dynatrace.MetricQueryResult{
		Result: []dynatrace.MetricSeriesCollection{{
			MetricID: "builtin:host.cpu.usage:avg",
			Data: []dynatrace.MetricSeries{{
				Dimensions: []string{"HOST-1"},
				Timestamps: []int64{1700000000000, 1700003600000},
				Values:     []*float64{&v1, &v2},
			}},
		}},
	}

	want := "Metrics Data\n\n" +
		"builtin:host.cpu.usage:avg\n" +
		"  Dimensions: HOST-1\n" +
		"  Latest (23:13:20): 45.50\n" +
		"  Range: 40.00 - 45.50\n" +
		"  Average: 42.75"

	if got := formatMetrics(res); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatMetricsNilTail(t *testing.T) {
	v := 40.0
	res := &dynatrace.MetricQueryResult{
		Result: []dynatrace.MetricSeriesCollection{{
			MetricID: "builtin:host.mem.usage:avg",
			Data: []dynatrace.MetricSeries{{
				Timestamps: []int64{1700000000000, 1700003600000},
				Values:     []*float64{&v, nil},
			}},
		}},
	}

	got := formatMetrics(res)
	if strings.Contains(got, "Latest") {
		t.Errorf("nil tail value must not produce a Latest line:\n%s", got)
	}
	if !strings.Contains(got, "Range: 40.00 - 40.00") {
		t.Errorf("range should skip nil values:\n%s", got)
	}
}

func TestFormatMetricsEmpty(t *testing.T) {
	if got := formatMetrics(&dynatrace.MetricQueryResult{}); got != "No metric data found." {
		t.Errorf("got %q", got)
	}
}

func TestFormatReleases(t *testing.T) {
	list := &dynatrace.ReleaseList{
		TotalCount: 1,
		Releases: []dynatrace.Release{{
			Name:             "checkout",
			Version:          "2.1.0",
			Product:          "shop",
			Stage:            "production",
			ReleaseTime:      1700000000000,
			AffectedEntities: []string{"SERVICE-1", "SERVICE-2"},
		}},
	}

	want := "Recent Deployments (1 total)\n\n" +
		"checkout v2.1.0\n" +
		"  Product: shop\n" +
		"  Stage: production\n" +
		"  Released: 2023-11-14 22:13:20\n" +
		"  Affected entities: 2"

	if got := formatReleases(list, 15); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatReleasesEmpty(t *testing.T) {
	got := formatReleases(&dynatrace.ReleaseList{}, 15)
	if got != "No deployments found in the specified timeframe." {
		t.Errorf("got %q", got)
	}
}
