package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/okhotin/dynagent/internal/metrics"
)

// Gemini is an OpenAI-compatible HTTP provider pointed at the Gemini
// chat-completions surface. Models are tried in order: when one fails
// with a transient error (rate limit, 5xx) the next model in the chain
// is used for the same request. Auth and client errors fail immediately.
type Gemini struct {
	apiURL string
	apiKey string
	models []string
	client *http.Client
}

// NewGemini creates a provider for the given endpoint and model chain.
// apiURL is the base (".../v1beta/openai"); "/chat/completions" is
// appended per request.
func NewGemini(apiURL, apiKey string, models []string, timeout time.Duration) *Gemini {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if len(models) == 0 {
		models = []string{"gemini-1.5-flash"}
	}
	return &Gemini{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		models: models,
		client: &http.Client{Timeout: timeout},
	}
}

// Chat sends a chat completion request, walking the model chain on
// transient failures.
func (g *Gemini) Chat(ctx context.Context, messages []Message) (string, error) {
	var lastErr error
	for i, model := range g.models {
		text, err := g.complete(ctx, model, messages)
		if err == nil {
			metrics.LLMRequests.WithLabelValues(model, "ok").Inc()
			return text, nil
		}
		metrics.LLMRequests.WithLabelValues(model, "error").Inc()
		lastErr = err

		var pe *ProviderError
		if errors.As(err, &pe) && pe.IsTransient() && i < len(g.models)-1 {
			slog.Warn("LLM model failed, trying next in chain",
				slog.String("model", model),
				slog.String("next", g.models[i+1]),
				slog.String("error", err.Error()))
			continue
		}
		return "", err
	}
	return "", lastErr
}

// complete performs a single chat completion call for one model.
func (g *Gemini) complete(ctx context.Context, model string, messages []Message) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":    model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseProviderError(resp.StatusCode, data)
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices in LLM response")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// OpenAI-compatible API response types.
type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
