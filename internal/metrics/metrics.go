// Package metrics exposes the agent's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Requests counts resolved inbound queries by skill.
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dynagent_requests_total",
		Help: "Inbound queries by resolved skill.",
	}, []string{"skill"})

	// DynatraceRequests counts Environment API calls by endpoint and result.
	// The code label carries the HTTP status, or "timeout"/"error" when no
	// response arrived.
	DynatraceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dynagent_dynatrace_requests_total",
		Help: "Dynatrace API calls by endpoint and HTTP status code.",
	}, []string{"endpoint", "code"})

	// LLMRequests counts completion calls by model and outcome (ok/error).
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dynagent_llm_requests_total",
		Help: "LLM completion calls by model and outcome.",
	}, []string{"model", "outcome"})

	// LLMFallbacks counts responses degraded to raw Dynatrace data after an
	// LLM failure.
	LLMFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dynagent_llm_fallbacks_total",
		Help: "Responses that fell back to raw data after an LLM failure.",
	})
)

// Handler serves the Prometheus text exposition for the default registry.
func Handler() http.Handler { return promhttp.Handler() }
