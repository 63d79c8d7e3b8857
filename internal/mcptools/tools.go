// Package mcptools exposes the agent's skills as MCP tools so MCP-compatible
// assistants can query Dynatrace through the same pipeline as A2A callers.
package mcptools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okhotin/dynagent/internal/agent"
	"github.com/okhotin/dynagent/internal/resolver"
)

// RegisterAll registers one read-only tool per skill plus dynatrace_ask.
func RegisterAll(server *mcp.Server, ag *agent.Agent) {
	registerListProblems(server, ag)
	registerAnalyzeProblem(server, ag)
	registerRootCause(server, ag)
	registerTopology(server, ag)
	registerMetrics(server, ag)
	registerDeployments(server, ag)
	registerHealthSummary(server, ag)
	registerAsk(server, ag)
}

func registerListProblems(server *mcp.Server, ag *agent.Agent) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dynatrace_list_problems",
		Description: "List active problems and alerts from Dynatrace with filtering by status, severity, and time range.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ListProblemsInput) (*mcp.CallToolResult, TextOutput, error) {
		tr := input.TimeRange
		if tr == "" {
			tr = "24h"
		}
		comp, err := ag.RunSkill(ctx, resolver.SkillListProblems, resolver.Params{
			Status:    input.Status,
			Severity:  input.Severity,
			TimeRange: tr,
		})
		if err != nil {
			return nil, TextOutput{}, err
		}
		return nil, TextOutput{Text: comp.Render()}, nil
	})
}

func registerAnalyzeProblem(server *mcp.Server, ag *agent.Agent) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dynatrace_analyze_problem",
		Description: "Get detailed analysis of a specific problem including evidence, affected entities, recent deployments, and AI insights.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeProblemInput) (*mcp.CallToolResult, TextOutput, error) {
		if input.ProblemID == "" {
			return nil, TextOutput{}, errors.New("problem_id is required")
		}
		comp, err := ag.RunSkill(ctx, resolver.SkillAnalyzeProblem, resolver.Params{ProblemID: input.ProblemID})
		if err != nil {
			return nil, TextOutput{}, err
		}
		return nil, TextOutput{Text: comp.Render()}, nil
	})
}

func registerRootCause(server *mcp.Server, ag *agent.Agent) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dynatrace_root_cause",
		Description: "AI-powered root cause analysis correlating problems with deployments, metrics, and topology. Accepts a problem ID or free-text symptoms.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input RootCauseInput) (*mcp.CallToolResult, TextOutput, error) {
		tr := input.TimeRange
		if tr == "" {
			tr = "24h"
		}
		comp, err := ag.RunSkill(ctx, resolver.SkillRootCause, resolver.Params{
			ProblemID: input.ProblemID,
			Symptoms:  input.Symptoms,
			TimeRange: tr,
		})
		if err != nil {
			return nil, TextOutput{}, err
		}
		return nil, TextOutput{Text: comp.Render()}, nil
	})
}

func registerTopology(server *mcp.Server, ag *agent.Agent) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dynatrace_topology",
		Description: "Get service topology, dependencies, and entity relationships from Dynatrace Smartscape.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TopologyInput) (*mcp.CallToolResult, TextOutput, error) {
		entityType := input.EntityType
		if entityType == "" {
			entityType = "SERVICE"
		}
		tr := input.TimeRange
		if tr == "" {
			tr = "2h"
		}
		comp, err := ag.RunSkill(ctx, resolver.SkillTopology, resolver.Params{
			EntityType: entityType,
			TimeRange:  tr,
		})
		if err != nil {
			return nil, TextOutput{}, err
		}
		return nil, TextOutput{Text: comp.Render()}, nil
	})
}

func registerMetrics(server *mcp.Server, ag *agent.Agent) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dynatrace_metrics",
		Description: "Query performance metrics including CPU, memory, response time, error rates, and throughput.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input MetricsInput) (*mcp.CallToolResult, TextOutput, error) {
		metric := input.Metric
		if metric == "" {
			metric = "cpu"
		}
		tr := input.TimeRange
		if tr == "" {
			tr = "2h"
		}
		comp, err := ag.RunSkill(ctx, resolver.SkillMetrics, resolver.Params{
			Metric:     metric,
			EntityType: input.EntityType,
			TimeRange:  tr,
		})
		if err != nil {
			return nil, TextOutput{}, err
		}
		return nil, TextOutput{Text: comp.Render()}, nil
	})
}

func registerDeployments(server *mcp.Server, ag *agent.Agent) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dynatrace_deployments",
		Description: "Get recent deployments and releases for correlation with problems and performance changes.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input DeploymentsInput) (*mcp.CallToolResult, TextOutput, error) {
		tr := input.TimeRange
		if tr == "" {
			tr = "7d"
		}
		comp, err := ag.RunSkill(ctx, resolver.SkillDeployments, resolver.Params{TimeRange: tr})
		if err != nil {
			return nil, TextOutput{}, err
		}
		return nil, TextOutput{Text: comp.Render()}, nil
	})
}

func registerHealthSummary(server *mcp.Server, ag *agent.Agent) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dynatrace_health_summary",
		Description: "Get a comprehensive health summary of the monitored environment with AI insights.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ HealthSummaryInput) (*mcp.CallToolResult, TextOutput, error) {
		comp, err := ag.RunSkill(ctx, resolver.SkillHealthSummary, resolver.Params{})
		if err != nil {
			return nil, TextOutput{}, err
		}
		return nil, TextOutput{Text: comp.Render()}, nil
	})
}

func registerAsk(server *mcp.Server, ag *agent.Agent) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "dynatrace_ask",
		Description: "Ask any question about your Dynatrace monitoring data in natural language.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, TextOutput, error) {
		if input.Question == "" {
			return nil, TextOutput{}, errors.New("question is required")
		}
		comp, err := ag.RunSkill(ctx, resolver.SkillFreeform, resolver.Params{Symptoms: input.Question})
		if err != nil {
			return nil, TextOutput{}, err
		}
		return nil, TextOutput{Text: comp.Render()}, nil
	})
}
