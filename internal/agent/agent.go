// Package agent composes responses to observability queries. A query is
// resolved to a skill, the skill fetches Dynatrace data and renders a
// plain-text report, and LLM-backed skills layer an AI summary on top.
// When the LLM is unreachable the report is returned as-is with a note,
// never an error.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/okhotin/dynagent/internal/dynatrace"
	"github.com/okhotin/dynagent/internal/metrics"
	"github.com/okhotin/dynagent/internal/provider"
	"github.com/okhotin/dynagent/internal/resolver"
)

const systemPrompt = "You are an expert SRE/DevOps engineer analyzing Dynatrace monitoring data.\n" +
	"Provide concise, actionable insights."

// Agent wires the Dynatrace client and the LLM provider into the skill
// runners. Stateless; safe for concurrent use.
type Agent struct {
	dyn *dynatrace.Client
	llm provider.Provider
}

func New(dyn *dynatrace.Client, llm provider.Provider) *Agent {
	return &Agent{dyn: dyn, llm: llm}
}

// Composition is one composed response. Text always carries the full
// report. Exactly one of three shapes:
//
//   - Summarized true: LLM output is part of Text.
//   - Summarized false, Note set: the LLM was attempted and failed; Text
//     is the raw Dynatrace report and Note explains the degradation.
//   - Summarized false, Note empty: a structured skill with no LLM step.
type Composition struct {
	Text       string
	Summarized bool
	Note       string
}

// Render returns the user-visible response text.
func (c Composition) Render() string {
	if c.Note == "" {
		return c.Text
	}
	return c.Text + "\n\n" + c.Note
}

// Process resolves and runs one query, returning the rendered response.
// This is the single entry point shared by the A2A executor and the MCP
// tools.
func (a *Agent) Process(ctx context.Context, query string) (string, error) {
	comp, err := a.Compose(ctx, query)
	if err != nil {
		return "", err
	}
	return comp.Render(), nil
}

// Compose resolves the query to a skill and runs it. A blank query gets
// the help text without touching Dynatrace or the LLM.
func (a *Agent) Compose(ctx context.Context, query string) (Composition, error) {
	if strings.TrimSpace(query) == "" {
		return Composition{Text: helpMessage}, nil
	}

	res := resolver.Resolve(query)
	metrics.Requests.WithLabelValues(string(res.Skill)).Inc()

	start := time.Now()
	comp, err := a.run(ctx, query, res)
	if err != nil {
		slog.Error("query failed",
			slog.String("skill", string(res.Skill)),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return Composition{}, err
	}

	slog.Info("query handled",
		slog.String("skill", string(res.Skill)),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("summarized", comp.Summarized))
	return comp, nil
}

func (a *Agent) run(ctx context.Context, query string, res resolver.Resolution) (Composition, error) {
	switch res.Skill {
	case resolver.SkillListProblems:
		return a.listProblems(ctx, res.Params)
	case resolver.SkillAnalyzeProblem:
		return a.analyzeProblem(ctx, res.Params)
	case resolver.SkillRootCause:
		return a.rootCause(ctx, res.Params)
	case resolver.SkillTopology:
		return a.topology(ctx, res.Params)
	case resolver.SkillMetrics:
		return a.queryMetrics(ctx, res.Params)
	case resolver.SkillDeployments:
		return a.deployments(ctx, res.Params)
	case resolver.SkillHealthSummary:
		return a.healthSummary(ctx)
	default:
		return a.freeform(ctx, query)
	}
}

// RunSkill executes one named skill directly, bypassing text resolution.
// The MCP tools use this to expose each skill as its own tool. For
// SkillFreeform the question travels in Params.Symptoms.
func (a *Agent) RunSkill(ctx context.Context, skill resolver.Skill, p resolver.Params) (Composition, error) {
	metrics.Requests.WithLabelValues(string(skill)).Inc()
	switch skill {
	case resolver.SkillListProblems:
		return a.listProblems(ctx, p)
	case resolver.SkillAnalyzeProblem:
		return a.analyzeProblem(ctx, p)
	case resolver.SkillRootCause:
		return a.rootCause(ctx, p)
	case resolver.SkillTopology:
		return a.topology(ctx, p)
	case resolver.SkillMetrics:
		return a.queryMetrics(ctx, p)
	case resolver.SkillDeployments:
		return a.deployments(ctx, p)
	case resolver.SkillHealthSummary:
		return a.healthSummary(ctx)
	case resolver.SkillFreeform:
		return a.freeform(ctx, p.Symptoms)
	}
	return Composition{}, fmt.Errorf("unknown skill %q", skill)
}

// summarize appends the LLM's output to the structured report under the
// given heading. On LLM failure the report is returned unchanged with
// the fallback note.
func (a *Agent) summarize(ctx context.Context, structured, heading, prompt string) Composition {
	out, err := a.llm.Chat(ctx, []provider.Message{
		provider.System(systemPrompt),
		provider.User(prompt),
	})
	if err != nil {
		return fallback(structured, err)
	}
	return Composition{
		Text:       structured + "\n\n" + heading + ":\n" + out,
		Summarized: true,
	}
}

// answer returns the LLM's output as the whole response. On LLM failure
// the structured fallback text is returned with the note instead.
func (a *Agent) answer(ctx context.Context, fallbackText, prompt string) Composition {
	out, err := a.llm.Chat(ctx, []provider.Message{
		provider.System(systemPrompt),
		provider.User(prompt),
	})
	if err != nil {
		return fallback(fallbackText, err)
	}
	return Composition{Text: out, Summarized: true}
}

func fallback(structured string, err error) Composition {
	slog.Warn("LLM summarization failed, returning raw data",
		slog.String("error", err.Error()))
	metrics.LLMFallbacks.Inc()

	reason := err.Error()
	var pe *provider.ProviderError
	if errors.As(err, &pe) {
		switch {
		case pe.IsRateLimit():
			reason = "rate limited"
		case pe.IsAuth():
			reason = "authentication failed"
		case pe.Message != "":
			reason = pe.Message
		}
	}
	return Composition{
		Text: structured,
		Note: fmt.Sprintf("AI analysis unavailable: %s. Showing Dynatrace data only.", reason),
	}
}

const helpMessage = `Dynatrace AI Agent

Ask me about your monitored environment. Examples:

Problems and alerts:
  "Show me open problems"
  "List critical alerts from the last 24 hours"

Problem analysis:
  "Analyze problem P-12345"
  "What's wrong with P-12345?"

Root cause analysis:
  "Why is the service slow?"
  "What caused the outage?"

Topology and dependencies:
  "Show service topology"
  "List all hosts"

Metrics:
  "Show CPU usage"
  "Memory metrics for the last 2 hours"

Deployments:
  "Recent deployments"
  "What was deployed this week?"

Health:
  "Environment health status"
  "How's everything looking?"`
