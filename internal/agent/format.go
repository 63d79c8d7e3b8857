package agent

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okhotin/dynagent/internal/dynatrace"
)

// formatTime renders a Dynatrace millisecond timestamp in UTC.
func formatTime(ms int64) string {
	if ms <= 0 {
		return "Unknown"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}

// formatProblem renders one problem with its affected entities.
func formatProblem(p *dynatrace.Problem) string {
	var b strings.Builder

	id := p.DisplayID
	if id == "" {
		id = p.ProblemID
		if len(id) > 20 {
			id = id[:20] + "..."
		}
	}

	fmt.Fprintf(&b, "Problem %s: %s\n", id, p.Title)
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	fmt.Fprintf(&b, "Severity: %s\n", p.SeverityLevel)
	fmt.Fprintf(&b, "Impact: %s\n", p.ImpactLevel)
	fmt.Fprintf(&b, "Started: %s\n", formatTime(p.StartTime))

	ended := "Ongoing"
	if p.EndTime > 0 {
		ended = formatTime(p.EndTime)
	}
	fmt.Fprintf(&b, "Ended: %s\n", ended)

	fmt.Fprintf(&b, "\nAffected entities (%d):\n", len(p.AffectedEntities))
	if len(p.AffectedEntities) == 0 {
		b.WriteString("  - none identified\n")
	}
	for i, e := range p.AffectedEntities {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "  - %s\n", entityStubName(e))
	}

	return strings.TrimRight(b.String(), "\n")
}

func entityStubName(e dynatrace.EntityStub) string {
	switch {
	case e.Name != "":
		return e.Name
	case e.EntityID.Name != "":
		return e.EntityID.Name
	case e.EntityID.ID != "":
		return e.EntityID.ID
	}
	return "Unknown"
}

// formatProblemList renders a problem listing: total count, up to ten
// entries in API order, and a remainder line. Output is stable for a
// fixed API response.
func formatProblemList(list *dynatrace.ProblemList) string {
	if list.TotalCount == 0 {
		return "No problems found in the specified timeframe."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dynatrace Problems (%d total)\n\n", list.TotalCount)
	for i, p := range list.Problems {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "[%s] %s - %s [%s]\n", p.Status, p.DisplayID, p.Title, p.SeverityLevel)
	}
	if list.TotalCount > 10 {
		fmt.Fprintf(&b, "\n... and %d more problems\n", list.TotalCount-10)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatTopology renders entities with their dependency edges and tags.
// Relationship types are sorted so the output is stable.
func formatTopology(list *dynatrace.EntityList, entityType string) string {
	if len(list.Entities) == 0 {
		return fmt.Sprintf("No %s entities found matching criteria.", entityType)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Topology: %s (%d total)\n\n", entityType, list.TotalCount)

	for i, e := range list.Entities {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "%s (%s)\n", e.DisplayName, e.EntityID)
		writeRelationships(&b, "->", e.FromRelationships)
		writeRelationships(&b, "<-", e.ToRelationships)
		if len(e.Tags) > 0 {
			tags := make([]string, 0, 5)
			for j, t := range e.Tags {
				if j == 5 {
					break
				}
				tags = append(tags, t.Key+":"+t.Value)
			}
			fmt.Fprintf(&b, "  Tags: %s\n", strings.Join(tags, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRelationships(b *strings.Builder, arrow string, rels map[string][]dynatrace.EntityRef) {
	types := make([]string, 0, len(rels))
	for t := range rels {
		types = append(types, t)
	}
	sort.Strings(types)

	for i, t := range types {
		if i == 3 {
			break
		}
		names := make([]string, 0, 3)
		for j, ref := range rels[t] {
			if j == 3 {
				break
			}
			names = append(names, entityRefName(ref))
		}
		fmt.Fprintf(b, "  %s %s: %s\n", arrow, t, strings.Join(names, ", "))
	}
}

func entityRefName(ref dynatrace.EntityRef) string {
	if ref.Name != "" {
		return ref.Name
	}
	if ref.ID != "" {
		return ref.ID
	}
	return "?"
}

// formatMetrics renders each metric's series: dimensions, latest point,
// range and average over the window.
func formatMetrics(res *dynatrace.MetricQueryResult) string {
	if len(res.Result) == 0 {
		return "No metric data found."
	}

	var b strings.Builder
	b.WriteString("Metrics Data\n\n")

	for _, metric := range res.Result {
		fmt.Fprintf(&b, "%s\n", metric.MetricID)

		for i, series := range metric.Data {
			if i == 5 {
				break
			}
			if len(series.Dimensions) > 0 {
				fmt.Fprintf(&b, "  Dimensions: %s\n", strings.Join(series.Dimensions, ", "))
			}
			writeSeriesStats(&b, series)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeSeriesStats(b *strings.Builder, s dynatrace.MetricSeries) {
	if len(s.Values) == 0 || len(s.Timestamps) == 0 {
		return
	}

	if latest := s.Values[len(s.Values)-1]; latest != nil {
		ts := time.UnixMilli(s.Timestamps[len(s.Timestamps)-1]).UTC().Format("15:04:05")
		fmt.Fprintf(b, "  Latest (%s): %.2f\n", ts, *latest)
	}

	var valid []float64
	for _, v := range s.Values {
		if v != nil {
			valid = append(valid, *v)
		}
	}
	if len(valid) == 0 {
		return
	}

	minV, maxV, sum := valid[0], valid[0], 0.0
	for _, v := range valid {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += v
	}
	fmt.Fprintf(b, "  Range: %.2f - %.2f\n", minV, maxV)
	fmt.Fprintf(b, "  Average: %.2f\n", sum/float64(len(valid)))
}

// formatReleases renders up to limit releases with version, stage and
// affected-entity count.
func formatReleases(list *dynatrace.ReleaseList, limit int) string {
	if len(list.Releases) == 0 {
		return "No deployments found in the specified timeframe."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent Deployments (%d total)\n\n", list.TotalCount)

	for i, r := range list.Releases {
		if i == limit {
			break
		}
		fmt.Fprintf(&b, "%s v%s\n", r.Name, r.Version)
		fmt.Fprintf(&b, "  Product: %s\n", r.Product)
		fmt.Fprintf(&b, "  Stage: %s\n", r.Stage)
		fmt.Fprintf(&b, "  Released: %s\n", formatTime(r.ReleaseTime))
		fmt.Fprintf(&b, "  Affected entities: %d\n", len(r.AffectedEntities))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
