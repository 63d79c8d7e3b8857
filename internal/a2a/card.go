package a2a

import (
	"github.com/a2aproject/a2a-go/a2a"
)

// NewAgentCard builds the static agent card served at the well-known path.
// The skill ids mirror the resolver's skill names so a caller reading the
// card can predict which skill a query lands on.
func NewAgentCard(baseURL, version string) *a2a.AgentCard {
	return &a2a.AgentCard{
		Name: "Dynatrace AI Agent",
		Description: "AI-powered observability agent for SRE/Ops workflows. " +
			"Provides problem detection, root cause analysis, service topology, " +
			"performance metrics, and deployment correlation from Dynatrace.",
		URL:                baseURL + "/a2a",
		Version:            version,
		ProtocolVersion:    "1.0",
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		Capabilities: a2a.AgentCapabilities{
			Streaming: false,
		},
		DefaultInputModes:  []string{"text", "text/plain"},
		DefaultOutputModes: []string{"text", "text/plain"},
		Skills:             agentSkills(),
	}
}

func agentSkills() []a2a.AgentSkill {
	return []a2a.AgentSkill{
		{
			ID:          "list_problems",
			Name:        "List Problems",
			Description: "List active problems and alerts from Dynatrace with filtering by status, severity, and time range.",
			Tags:        []string{"problems", "alerts", "incidents", "monitoring"},
			Examples: []string{
				"Show me open problems",
				"List critical alerts from last 24 hours",
				"Any performance issues today?",
			},
		},
		{
			ID:          "analyze_problem",
			Name:        "Analyze Problem",
			Description: "Get detailed analysis of a specific problem including evidence, affected entities, and AI insights.",
			Tags:        []string{"analysis", "investigation", "troubleshooting"},
			Examples: []string{
				"Analyze problem P-12345",
				"Investigate P-12345",
				"What's wrong with P-12345?",
			},
		},
		{
			ID:          "root_cause",
			Name:        "Root Cause Analysis",
			Description: "AI-powered root cause analysis correlating problems with deployments, metrics, and topology.",
			Tags:        []string{"rca", "root-cause", "ai", "investigation"},
			Examples: []string{
				"Root cause analysis for P-12345",
				"Why is the service slow?",
				"What caused the database latency?",
			},
		},
		{
			ID:          "topology",
			Name:        "Service Topology",
			Description: "Get service topology, dependencies, and entity relationships from Dynatrace Smartscape.",
			Tags:        []string{"topology", "smartscape", "dependencies", "architecture"},
			Examples: []string{
				"Show service topology",
				"List all hosts",
				"Service dependencies for payment-service",
			},
		},
		{
			ID:          "metrics",
			Name:        "Query Metrics",
			Description: "Query performance metrics including CPU, memory, response time, error rates, and throughput.",
			Tags:        []string{"metrics", "performance", "monitoring", "data"},
			Examples: []string{
				"Show CPU usage for last 2 hours",
				"Memory metrics for production hosts",
				"Response time performance",
			},
		},
		{
			ID:          "deployments",
			Name:        "Recent Deployments",
			Description: "Get recent deployments and releases for correlation with problems and performance changes.",
			Tags:        []string{"deployments", "releases", "changes", "cicd"},
			Examples: []string{
				"Recent deployments",
				"What was deployed this week?",
				"Show releases for payment-service",
			},
		},
		{
			ID:          "health_summary",
			Name:        "Health Summary",
			Description: "Get comprehensive health summary of the monitored environment with AI insights.",
			Tags:        []string{"health", "status", "overview", "dashboard"},
			Examples: []string{
				"Environment health status",
				"Give me an overview",
				"How's production looking?",
			},
		},
		{
			ID:          "freeform",
			Name:        "Natural Language Query",
			Description: "Ask any question about your Dynatrace monitoring data in natural language.",
			Tags:        []string{"question", "natural-language", "ai", "ask"},
			Examples: []string{
				"Is there anything I should worry about?",
				"What's happening with production?",
				"Should I be concerned about the database?",
			},
		},
	}
}
