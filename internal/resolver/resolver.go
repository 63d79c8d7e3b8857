// Package resolver maps inbound query text to one of the agent's fixed
// skills. Resolution walks an ordered rule table and the first match wins,
// so the table order below is the tie-break when a query matches several
// heuristics. Same input text, same resolution, always.
package resolver

import (
	"regexp"
	"strconv"
	"strings"
)

// Skill names one capability of the agent. The catalog is fixed at process
// start.
type Skill string

const (
	SkillListProblems   Skill = "list_problems"
	SkillAnalyzeProblem Skill = "analyze_problem"
	SkillRootCause      Skill = "root_cause"
	SkillTopology       Skill = "topology"
	SkillMetrics        Skill = "metrics"
	SkillDeployments    Skill = "deployments"
	SkillHealthSummary  Skill = "health_summary"
	SkillFreeform       Skill = "freeform"
)

// Params carries whatever the rule's extractor pulled out of the query.
// Zero values mean "not specified"; each extractor fills the defaults its
// skill needs (listing skills widen the generic 2h window to 24h or 7d,
// which would otherwise return nothing useful).
type Params struct {
	ProblemID  string
	Status     string
	Severity   string
	EntityType string
	Metric     string
	TimeRange  string
	Symptoms   string
}

// Resolution is the outcome of resolving one query.
type Resolution struct {
	Skill  Skill
	Params Params
}

// rule is one row of the resolution table: match inspects the lowercased
// query, extract receives the original text so identifiers keep their case.
type rule struct {
	skill   Skill
	match   func(q string) bool
	extract func(raw, q string) Params
}

var problemIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(P-\d+)\b`),
	regexp.MustCompile(`(?i)\bproblem\s+(?:id\s+)?#?(\d+)\b`),
	regexp.MustCompile(`(?i)\b([A-Z0-9_-]+_\d+V\d+)\b`),
}

var rules = []rule{
	// A problem ID always means "tell me about that problem", whatever
	// else the query says. Keep this rule first.
	{
		skill:   SkillAnalyzeProblem,
		match:   func(q string) bool { return extractProblemID(q) != "" },
		extract: func(raw, q string) Params { return Params{ProblemID: extractProblemID(raw)} },
	},
	{
		skill: SkillRootCause,
		match: matchAny("root cause", "rca", "why is", "what caused", "investigate"),
		extract: func(raw, q string) Params {
			return Params{Symptoms: raw, TimeRange: timeRangeOr(q, "24h")}
		},
	},
	{
		skill: SkillListProblems,
		match: matchAny("problem", "alert", "issue", "incident"),
		extract: func(raw, q string) Params {
			return Params{
				Status:    problemStatus(q),
				Severity:  problemSeverity(q),
				TimeRange: timeRangeOr(q, "24h"),
			}
		},
	},
	{
		skill: SkillTopology,
		match: matchTopologyQuery,
		extract: func(raw, q string) Params {
			return Params{EntityType: entityTypeOr(q, "SERVICE"), TimeRange: timeRangeOr(q, "2h")}
		},
	},
	{
		skill: SkillMetrics,
		match: func(q string) bool {
			return extractMetric(q) != "" || containsAny(q, "metric", "performance", "usage")
		},
		extract: func(raw, q string) Params {
			return Params{
				Metric:     metricOr(q, "cpu"),
				EntityType: extractEntityType(q),
				TimeRange:  timeRangeOr(q, "2h"),
			}
		},
	},
	{
		skill: SkillDeployments,
		match: matchAny("deploy", "release", "change"),
		extract: func(raw, q string) Params {
			return Params{TimeRange: timeRangeOr(q, "7d")}
		},
	},
	{
		skill:   SkillHealthSummary,
		match:   matchAny("health", "status", "overview", "summary", "how is", "how's", "dashboard"),
		extract: func(raw, q string) Params { return Params{} },
	},
}

// matchTopologyQuery answers two phrasings: the explicit vocabulary and
// "list/show/all services|hosts".
func matchTopologyQuery(q string) bool {
	if containsAny(q, "topology", "dependencies", "architecture", "map") {
		return true
	}
	return containsAny(q,
		"list services", "show services", "all services",
		"list hosts", "show hosts", "all hosts")
}

// Resolve picks the skill for a query. Queries matching no rule resolve to
// SkillFreeform with empty params; the caller hands the raw text to the LLM.
func Resolve(query string) Resolution {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, r := range rules {
		if r.match(q) {
			return Resolution{Skill: r.skill, Params: r.extract(query, q)}
		}
	}
	return Resolution{Skill: SkillFreeform}
}

func extractProblemID(s string) string {
	for _, re := range problemIDPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}

var timePatterns = []struct {
	re   *regexp.Regexp
	days bool
	mul  int
}{
	{re: regexp.MustCompile(`(?i)\b(?:last|past)\s+(\d+)\s*h(?:our)?s?\b`)},
	{re: regexp.MustCompile(`(?i)\b(?:last|past)\s+(\d+)\s*d(?:ay)?s?\b`), days: true, mul: 1},
	{re: regexp.MustCompile(`(?i)\b(?:last|past)\s+(\d+)\s*w(?:eek)?s?\b`), days: true, mul: 7},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s*h(?:our)?s?\s+ago\b`)},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s*d(?:ay)?s?\s+ago\b`), days: true, mul: 1},
}

var reThisWeek = regexp.MustCompile(`this\s+week`)

// extractTimeRange returns a Dynatrace-style relative window ("6h", "3d")
// or "" when the query names none.
func extractTimeRange(q string) string {
	for _, tp := range timePatterns {
		m := tp.re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if tp.days {
			return strconv.Itoa(n*tp.mul) + "d"
		}
		return strconv.Itoa(n) + "h"
	}
	if strings.Contains(q, "today") {
		return "24h"
	}
	if reThisWeek.MatchString(q) {
		return "7d"
	}
	return ""
}

func timeRangeOr(q, def string) string {
	if tr := extractTimeRange(q); tr != "" {
		return tr
	}
	return def
}

var entityTypeKeywords = []struct {
	keyword string
	typ     string
}{
	{"service", "SERVICE"},
	{"host", "HOST"},
	{"server", "HOST"},
	{"process", "PROCESS_GROUP"},
	{"application", "APPLICATION"},
	{"database", "DATABASE"},
}

func extractEntityType(q string) string {
	for _, e := range entityTypeKeywords {
		if strings.Contains(q, e.keyword) {
			return e.typ
		}
	}
	return ""
}

func entityTypeOr(q, def string) string {
	if t := extractEntityType(q); t != "" {
		return t
	}
	return def
}

var metricKeywords = []struct {
	keyword string
	metric  string
}{
	{"cpu", "cpu"},
	{"processor", "cpu"},
	{"memory", "memory"},
	{"ram", "memory"},
	{"disk", "disk"},
	{"storage", "disk"},
	{"response time", "response_time"},
	{"latency", "response_time"},
	{"error rate", "error_rate"},
	{"errors", "error_rate"},
	{"throughput", "throughput"},
	{"requests", "throughput"},
	{"availability", "availability"},
	{"uptime", "availability"},
	{"network", "network"},
	{"traffic", "network"},
}

func extractMetric(q string) string {
	for _, m := range metricKeywords {
		if strings.Contains(q, m.keyword) {
			return m.metric
		}
	}
	return ""
}

func metricOr(q, def string) string {
	if m := extractMetric(q); m != "" {
		return m
	}
	return def
}

func problemStatus(q string) string {
	switch {
	case strings.Contains(q, "open"):
		return "OPEN"
	case strings.Contains(q, "closed"):
		return "CLOSED"
	}
	return ""
}

func problemSeverity(q string) string {
	switch {
	case containsAny(q, "critical", "availability"):
		return "AVAILABILITY"
	case strings.Contains(q, "error"):
		return "ERROR"
	case containsAny(q, "performance", "slow"):
		return "PERFORMANCE"
	}
	return ""
}

func containsAny(q string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

func matchAny(keywords ...string) func(string) bool {
	return func(q string) bool { return containsAny(q, keywords...) }
}
