package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/okhotin/dynagent/internal/dynatrace"
	"github.com/okhotin/dynagent/internal/resolver"
)

// metricSelectors maps friendly metric names to Dynatrace selectors.
// Anything not in the table is passed through as a raw selector.
var metricSelectors = map[string]string{
	"cpu":           "builtin:host.cpu.usage:avg",
	"memory":        "builtin:host.mem.usage:avg",
	"disk":          "builtin:host.disk.usedPct:avg",
	"response_time": "builtin:service.response.time:avg",
	"error_rate":    "builtin:service.errors.total.rate:avg",
	"throughput":    "builtin:service.requestCount.total:avg",
	"availability":  "builtin:host.availability:avg",
	"network":       "builtin:host.net.nic.trafficIn:avg",
}

func metricSelector(metric string) string {
	key := strings.ReplaceAll(strings.ToLower(metric), " ", "_")
	if sel, ok := metricSelectors[key]; ok {
		return sel
	}
	return metric
}

// fromRange turns a relative window like "24h" into the API's from
// parameter ("now-24h").
func fromRange(tr string) string {
	if tr == "" {
		return ""
	}
	return "now-" + tr
}

// resolutionFor picks the data-point resolution for a window: short
// windows get 10-minute points, anything longer hourly ones.
func resolutionFor(tr string) string {
	if tr == "1h" || tr == "2h" {
		return "10m"
	}
	return "1h"
}

func (a *Agent) listProblems(ctx context.Context, p resolver.Params) (Composition, error) {
	list, err := a.dyn.Problems(ctx, dynatrace.ProblemQuery{
		Status:   p.Status,
		Severity: p.Severity,
		From:     fromRange(p.TimeRange),
	})
	if err != nil {
		return Composition{}, fmt.Errorf("list problems: %w", err)
	}
	return Composition{Text: formatProblemList(list)}, nil
}

func (a *Agent) analyzeProblem(ctx context.Context, p resolver.Params) (Composition, error) {
	prob, err := a.dyn.Problem(ctx, p.ProblemID)
	if err != nil {
		return Composition{}, fmt.Errorf("analyze problem %s: %w", p.ProblemID, err)
	}

	var b strings.Builder
	b.WriteString(formatProblem(prob))

	var evidence []dynatrace.Evidence
	if prob.EvidenceDetails != nil {
		evidence = prob.EvidenceDetails.Details
	}
	if len(evidence) > 0 {
		b.WriteString("\n\nEvidence (root cause indicators):\n")
		for i, ev := range evidence {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "  [%s] %s (entity: %s)\n", ev.EvidenceType, ev.DisplayName, entityStubName(ev.Entity))
			switch ev.EvidenceType {
			case "EVENT":
				if ev.EventType != "" {
					fmt.Fprintf(&b, "    Event type: %s\n", ev.EventType)
				}
			case "METRIC":
				if ev.MetricID != "" {
					fmt.Fprintf(&b, "    Metric: %s\n", ev.MetricID)
				}
			}
		}
	}

	// Deployments on the affected entities often explain the problem;
	// the releases API may be unavailable on older tenants, so failures
	// here only drop the section.
	if sel := entityIDSelector(prob.AffectedEntities, 3); sel != "" {
		releases, err := a.dyn.Releases(ctx, dynatrace.ReleaseQuery{
			EntitySelector: sel,
			From:           "now-7d",
		})
		if err != nil {
			slog.Debug("release correlation unavailable", slog.String("error", err.Error()))
		} else if len(releases.Releases) > 0 {
			b.WriteString("\nRecent deployments (potential correlation):\n")
			for i, r := range releases.Releases {
				if i == 3 {
					break
				}
				fmt.Fprintf(&b, "  %s v%s - %s\n", r.Name, r.Version, formatTime(r.ReleaseTime))
			}
		}
	}

	top := evidence
	if len(top) > 3 {
		top = top[:3]
	}
	aiContext := fmt.Sprintf(
		"Problem: %s\nSeverity: %s\nImpact: %s\nAffected entities: %d\nEvidence count: %d\n\nEvidence details:\n%s",
		prob.Title, prob.SeverityLevel, prob.ImpactLevel,
		len(prob.AffectedEntities), len(evidence), contextJSON(top))

	prompt := aiContext + "\n\n" +
		"Based on this Dynatrace problem data, provide:\n" +
		"1. Likely root cause (1-2 sentences)\n" +
		"2. Recommended actions (2-3 bullet points)\n" +
		"3. Risk assessment (low/medium/high with a brief explanation)"

	return a.summarize(ctx, b.String(), "AI analysis", prompt), nil
}

func (a *Agent) rootCause(ctx context.Context, p resolver.Params) (Composition, error) {
	contextData := map[string]any{}
	var sections []string

	if p.ProblemID != "" {
		prob, err := a.dyn.Problem(ctx, p.ProblemID)
		if err != nil {
			return Composition{}, fmt.Errorf("root cause for %s: %w", p.ProblemID, err)
		}
		contextData["problem"] = prob
		sections = append(sections, formatProblem(prob))

		if sel := entityIDSelector(prob.AffectedEntities, 1); sel != "" {
			cpu, err := a.dyn.Metrics(ctx, dynatrace.MetricQuery{
				Selector:       "builtin:host.cpu.usage:avg",
				EntitySelector: sel,
				From:           "now-6h",
			})
			if err != nil {
				slog.Debug("cpu context unavailable", slog.String("error", err.Error()))
			} else {
				contextData["cpu_metrics"] = cpu
				sections = append(sections, formatMetrics(cpu))
			}
		}

		releases, err := a.dyn.Releases(ctx, dynatrace.ReleaseQuery{From: "now-7d"})
		if err != nil {
			slog.Debug("release context unavailable", slog.String("error", err.Error()))
		} else {
			top := releases.Releases
			if len(top) > 5 {
				top = top[:5]
			}
			contextData["recent_releases"] = top
			sections = append(sections, formatReleases(releases, 5))
		}
	} else {
		probs, err := a.dyn.Problems(ctx, dynatrace.ProblemQuery{Status: "OPEN", From: fromRange(p.TimeRange)})
		if err != nil {
			return Composition{}, fmt.Errorf("root cause context: %w", err)
		}
		top := probs.Problems
		if len(top) > 5 {
			top = top[:5]
		}
		contextData["open_problems"] = top
		sections = append(sections, formatProblemList(probs))
	}

	var prompt strings.Builder
	prompt.WriteString("Analyze the following Dynatrace monitoring data and provide a comprehensive root cause analysis.\n\n")
	if p.Symptoms != "" {
		fmt.Fprintf(&prompt, "Symptoms reported: %s\n\n", p.Symptoms)
	}
	fmt.Fprintf(&prompt, "Monitoring data:\n%s\n\n", contextJSON(contextData))
	prompt.WriteString(`Provide a structured analysis with these sections:

Root cause analysis
- Primary cause: the most likely root cause
- Contributing factors: secondary factors that may have contributed
- Evidence chain: connect the dots between symptoms and root cause

Impact assessment
- Scope and severity of the impact

Recommended actions
- Immediate actions (next 15 minutes)
- Short-term actions (next 24 hours)
- Preventive measures against recurrence

Risk assessment
- Overall risk and urgency`)

	return a.answer(ctx, strings.Join(sections, "\n\n"), prompt.String()), nil
}

func (a *Agent) topology(ctx context.Context, p resolver.Params) (Composition, error) {
	list, err := a.dyn.Entities(ctx, dynatrace.EntityQuery{
		Selector: fmt.Sprintf("type(%q)", p.EntityType),
		Fields:   "+fromRelationships,+toRelationships,+properties,+tags",
		From:     fromRange(p.TimeRange),
	})
	if err != nil {
		return Composition{}, fmt.Errorf("topology: %w", err)
	}
	return Composition{Text: formatTopology(list, p.EntityType)}, nil
}

func (a *Agent) queryMetrics(ctx context.Context, p resolver.Params) (Composition, error) {
	var entitySel string
	if p.EntityType != "" {
		entitySel = fmt.Sprintf("type(%q)", p.EntityType)
	}

	res, err := a.dyn.Metrics(ctx, dynatrace.MetricQuery{
		Selector:       metricSelector(p.Metric),
		EntitySelector: entitySel,
		From:           fromRange(p.TimeRange),
		Resolution:     resolutionFor(p.TimeRange),
	})
	if err != nil {
		return Composition{}, fmt.Errorf("query metrics: %w", err)
	}
	return Composition{Text: formatMetrics(res)}, nil
}

func (a *Agent) deployments(ctx context.Context, p resolver.Params) (Composition, error) {
	list, err := a.dyn.Releases(ctx, dynatrace.ReleaseQuery{From: fromRange(p.TimeRange)})
	if err != nil {
		return Composition{}, fmt.Errorf("deployments: %w", err)
	}
	return Composition{Text: formatReleases(list, 15)}, nil
}

func (a *Agent) healthSummary(ctx context.Context) (Composition, error) {
	probs, err := a.dyn.Problems(ctx, dynatrace.ProblemQuery{Status: "OPEN", From: "now-24h"})
	if err != nil {
		return Composition{}, fmt.Errorf("health summary: %w", err)
	}
	releases, err := a.dyn.Releases(ctx, dynatrace.ReleaseQuery{From: "now-7d"})
	if err != nil {
		return Composition{}, fmt.Errorf("health summary: %w", err)
	}

	severityCounts := map[string]int{}
	for _, p := range probs.Problems {
		sev := p.SeverityLevel
		if sev == "" {
			sev = "UNKNOWN"
		}
		severityCounts[sev]++
	}

	var b strings.Builder
	b.WriteString("Environment Health Summary\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	fmt.Fprintf(&b, "Open problems: %d\n", probs.TotalCount)
	fmt.Fprintf(&b, "Recent deployments (7d): %d\n", releases.TotalCount)

	if len(severityCounts) > 0 {
		b.WriteString("\nProblems by severity:\n")
		severities := make([]string, 0, len(severityCounts))
		for sev := range severityCounts {
			severities = append(severities, sev)
		}
		sort.Strings(severities)
		for _, sev := range severities {
			fmt.Fprintf(&b, "  %s: %d\n", sev, severityCounts[sev])
		}
	}

	if len(probs.Problems) > 0 {
		b.WriteString("\nActive problems:\n")
		for i, p := range probs.Problems {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "  %s: %s\n", p.DisplayID, p.Title)
		}
	}

	counts, _ := json.Marshal(severityCounts)
	prompt := fmt.Sprintf(
		"Open problems: %d\nSeverity distribution: %s\nRecent deployments: %d\n\n"+
			"Provide a brief 2-3 sentence executive summary of the environment health status. "+
			"Highlight any critical concerns or positive trends.",
		probs.TotalCount, counts, releases.TotalCount)

	return a.summarize(ctx, b.String(), "AI summary", prompt), nil
}

func (a *Agent) freeform(ctx context.Context, question string) (Composition, error) {
	q := strings.ToLower(question)
	contextData := map[string]any{}
	var sections []string

	if containsAny(q, "problem", "issue", "alert", "incident") {
		probs, err := a.dyn.Problems(ctx, dynatrace.ProblemQuery{From: "now-24h"})
		if err != nil {
			return Composition{}, fmt.Errorf("fetch problems: %w", err)
		}
		contextData["problems"] = probs
		sections = append(sections, formatProblemList(probs))
	}

	if containsAny(q, "deploy", "release", "change") {
		releases, err := a.dyn.Releases(ctx, dynatrace.ReleaseQuery{From: "now-7d"})
		if err != nil {
			return Composition{}, fmt.Errorf("fetch releases: %w", err)
		}
		contextData["releases"] = releases
		sections = append(sections, formatReleases(releases, 15))
	}

	if containsAny(q, "service", "topology", "dependency") {
		services, err := a.dyn.Entities(ctx, dynatrace.EntityQuery{
			Selector: `type("SERVICE")`,
			Fields:   "+fromRelationships,+toRelationships",
		})
		if err != nil {
			return Composition{}, fmt.Errorf("fetch services: %w", err)
		}
		contextData["services"] = services
		sections = append(sections, formatTopology(services, "SERVICE"))
	}

	if containsAny(q, "host", "server", "infrastructure") {
		hosts, err := a.dyn.Entities(ctx, dynatrace.EntityQuery{
			Selector: `type("HOST")`,
			Fields:   "+properties",
		})
		if err != nil {
			return Composition{}, fmt.Errorf("fetch hosts: %w", err)
		}
		contextData["hosts"] = hosts
		sections = append(sections, formatTopology(hosts, "HOST"))
	}

	if containsAny(q, "cpu", "memory", "performance", "metric") {
		cpu, err := a.dyn.Metrics(ctx, dynatrace.MetricQuery{
			Selector: "builtin:host.cpu.usage:avg:names",
			From:     "now-2h",
		})
		if err != nil {
			slog.Debug("metric context unavailable", slog.String("error", err.Error()))
		} else {
			contextData["cpu_metrics"] = cpu
			sections = append(sections, formatMetrics(cpu))
		}
	}

	if len(contextData) == 0 {
		probs, err := a.dyn.Problems(ctx, dynatrace.ProblemQuery{From: "now-24h"})
		if err != nil {
			return Composition{}, fmt.Errorf("fetch problems: %w", err)
		}
		contextData["recent_problems"] = probs
		sections = append(sections, formatProblemList(probs))
	}

	prompt := fmt.Sprintf(
		"Question: %s\n\nAvailable Dynatrace data:\n%s\n\n"+
			"Provide a helpful, conversational answer to the question based on the monitoring data. "+
			"If the data doesn't contain enough information to fully answer the question, "+
			"explain what data would be needed and provide what insights you can.",
		question, contextJSON(contextData))

	return a.answer(ctx, strings.Join(sections, "\n\n"), prompt), nil
}

// entityIDSelector builds an entityId(...) selector from the first limit
// entities that carry an ID.
func entityIDSelector(entities []dynatrace.EntityStub, limit int) string {
	var parts []string
	for _, e := range entities {
		if e.EntityID.ID == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("entityId(%q)", e.EntityID.ID))
		if len(parts) == limit {
			break
		}
	}
	return strings.Join(parts, ",")
}

// contextJSON renders v as indented JSON for an LLM prompt, truncated so
// a large API response cannot blow up the request.
func contextJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := string(b)
	if len(s) > 4000 {
		s = s[:4000]
	}
	return s
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
