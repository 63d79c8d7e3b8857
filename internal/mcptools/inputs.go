package mcptools

// ListProblemsInput filters the problem feed.
type ListProblemsInput struct {
	Status    string `json:"status,omitempty" jsonschema:"Problem status filter: OPEN or CLOSED (all if omitted)"`
	Severity  string `json:"severity,omitempty" jsonschema:"Severity filter: AVAILABILITY, ERROR, PERFORMANCE, RESOURCE_CONTENTION"`
	TimeRange string `json:"time_range,omitempty" jsonschema:"Time range like 2h, 24h, 7d (default 24h)"`
}

// AnalyzeProblemInput identifies one problem to analyze in depth.
type AnalyzeProblemInput struct {
	ProblemID string `json:"problem_id" jsonschema:"Problem ID, either a display ID like P-12345 or a full problem ID"`
}

// RootCauseInput scopes a root cause investigation.
type RootCauseInput struct {
	ProblemID string `json:"problem_id,omitempty" jsonschema:"Problem ID to investigate (recent open problems if omitted)"`
	Symptoms  string `json:"symptoms,omitempty" jsonschema:"Observed symptoms in free text, e.g. 'checkout is slow since noon'"`
	TimeRange string `json:"time_range,omitempty" jsonschema:"Time range like 6h, 24h (default 24h)"`
}

// TopologyInput selects which slice of the topology to return.
type TopologyInput struct {
	EntityType string `json:"entity_type,omitempty" jsonschema:"Entity type: SERVICE, HOST, PROCESS_GROUP, APPLICATION, DATABASE (default SERVICE)"`
	TimeRange  string `json:"time_range,omitempty" jsonschema:"Time range like 2h, 24h (default 2h)"`
}

// MetricsInput selects a metric series to query.
type MetricsInput struct {
	Metric     string `json:"metric,omitempty" jsonschema:"Metric alias (cpu, memory, disk, response_time, error_rate, throughput) or a full Dynatrace metric selector (default cpu)"`
	EntityType string `json:"entity_type,omitempty" jsonschema:"Restrict to entities of this type, e.g. HOST or SERVICE"`
	TimeRange  string `json:"time_range,omitempty" jsonschema:"Time range like 2h, 24h (default 2h)"`
}

// DeploymentsInput scopes the release listing.
type DeploymentsInput struct {
	TimeRange string `json:"time_range,omitempty" jsonschema:"Time range like 24h, 7d (default 7d)"`
}

// HealthSummaryInput has no parameters.
type HealthSummaryInput struct{}

// AskInput carries a natural language question.
type AskInput struct {
	Question string `json:"question" jsonschema:"Question about the monitored environment in natural language"`
}

// TextOutput is the generic text output for all tools.
type TextOutput struct {
	Text string `json:"text"`
}
