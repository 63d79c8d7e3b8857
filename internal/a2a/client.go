package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client talks to a running agent over A2A JSON-RPC. It backs the ask and
// card subcommands.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// NewClient creates a client for the agent at baseURL. An empty apiKey skips
// authentication.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 120 * time.Second},
	}
}

// FetchCard retrieves the agent card and returns it pretty-printed.
func (c *Client) FetchCard(ctx context.Context) (string, error) {
	url := c.baseURL + "/.well-known/agent-card.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch card: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch card: HTTP %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if json.Unmarshal(body, &raw) == nil {
		if pretty, err := json.MarshalIndent(raw, "", "  "); err == nil {
			return string(pretty), nil
		}
	}
	return string(body), nil
}

// Send submits a message/send request and returns the agent's text response.
func (c *Client) Send(ctx context.Context, message string) (string, error) {
	msgID := uuid.NewString()
	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  "message/send",
		"id":      uuid.NewString(),
		"params": map[string]any{
			"message": map[string]any{
				"messageId": msgID,
				"role":      "user",
				"parts":     []map[string]any{{"kind": "text", "text": message}},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/a2a", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("send message: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return extractResponseText(respBody)
}

// extractResponseText pulls the agent's text out of an A2A JSON-RPC response.
// The result is a Task; the final status update carries the message.
func extractResponseText(data []byte) (string, error) {
	var rpc struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &rpc); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if rpc.Error != nil {
		return "", fmt.Errorf("remote error: %s", rpc.Error.Message)
	}

	var task struct {
		Status struct {
			State   string `json:"state"`
			Message struct {
				Parts []struct {
					Kind string `json:"kind"`
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"message"`
		} `json:"status"`
	}
	if err := json.Unmarshal(rpc.Result, &task); err != nil {
		return "", fmt.Errorf("parse task: %w", err)
	}

	texts := make([]string, 0, len(task.Status.Message.Parts))
	for _, p := range task.Status.Message.Parts {
		if p.Kind == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if task.Status.State == "failed" {
		if len(texts) > 0 {
			return "", fmt.Errorf("task failed: %s", strings.Join(texts, ""))
		}
		return "", errors.New("task failed")
	}
	if len(texts) == 0 {
		return "", errors.New("empty response from agent")
	}
	return strings.Join(texts, ""), nil
}
