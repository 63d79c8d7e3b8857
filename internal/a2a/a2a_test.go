package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/okhotin/dynagent/internal/dynatrace"
)

type stubProcessor struct {
	reply string
	err   error
	calls int32
	last  string
}

func (s *stubProcessor) Process(_ context.Context, query string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	s.last = query
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestServer(t *testing.T, proc MessageProcessor, apiKey string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	Register(mux, proc, "http://agent.test", "test", apiKey)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSendRoundTrip(t *testing.T) {
	proc := &stubProcessor{reply: "2 open problems found"}
	srv := newTestServer(t, proc, "")

	c := NewClient(srv.URL, "")
	got, err := c.Send(context.Background(), "show open problems")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != "2 open problems found" {
		t.Errorf("got %q, want %q", got, "2 open problems found")
	}
	if proc.last != "show open problems" {
		t.Errorf("processor received %q", proc.last)
	}
	if proc.calls != 1 {
		t.Errorf("processor called %d times, want 1", proc.calls)
	}
}

func TestSendProcessorError(t *testing.T) {
	proc := &stubProcessor{err: &dynatrace.APIError{Endpoint: "/problems", Timeout: true, Message: "deadline exceeded"}}
	srv := newTestServer(t, proc, "")

	c := NewClient(srv.URL, "")
	_, err := c.Send(context.Background(), "show open problems")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "did not respond in time") {
		t.Errorf("error should carry the readable timeout text, got %v", err)
	}
}

func TestNoTextPartInvalidRequest(t *testing.T) {
	proc := &stubProcessor{reply: "should not run"}
	srv := newTestServer(t, proc, "")

	payload := `{
		"jsonrpc": "2.0",
		"method": "message/send",
		"id": "req-1",
		"params": {
			"message": {
				"messageId": "msg-1",
				"role": "user",
				"parts": [{"kind": "data", "data": {"query": "hidden"}}]
			}
		}
	}`
	resp, err := http.Post(srv.URL+"/a2a", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var rpc struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if proc.calls != 0 {
		t.Fatalf("processor called %d times for a message without text", proc.calls)
	}
	if rpc.Error != nil {
		// Rejected at the protocol layer, which still keeps downstream quiet.
		return
	}
	var task struct {
		Status struct {
			State   string `json:"state"`
			Message struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"message"`
		} `json:"status"`
	}
	if err := json.Unmarshal(rpc.Result, &task); err != nil {
		t.Fatalf("parse task: %v", err)
	}
	if task.Status.State != "failed" {
		t.Errorf("task state = %q, want failed", task.Status.State)
	}
	var texts []string
	for _, p := range task.Status.Message.Parts {
		texts = append(texts, p.Text)
	}
	if joined := strings.Join(texts, ""); !strings.Contains(joined, "no text part") {
		t.Errorf("failure message = %q, want invalid-request text", joined)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	proc := &stubProcessor{reply: "ok"}
	srv := newTestServer(t, proc, "s3cret")

	resp, err := http.Post(srv.URL+"/a2a", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", resp.StatusCode)
	}

	for _, header := range []string{"x-api-key", "x-sn-apikey"} {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/a2a", strings.NewReader("{}"))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set(header, "s3cret")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST with %s: %v", header, err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized {
			t.Errorf("%s: got 401 with the correct key", header)
		}
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/a2a", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("x-api-key", "wrong")
	wrongResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	wrongResp.Body.Close()
	if wrongResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", wrongResp.StatusCode)
	}

	// The card stays public even with auth enabled.
	cardResp, err := http.Get(srv.URL + "/.well-known/agent-card.json")
	if err != nil {
		t.Fatalf("GET card: %v", err)
	}
	cardResp.Body.Close()
	if cardResp.StatusCode != http.StatusOK {
		t.Errorf("card: status = %d, want 200", cardResp.StatusCode)
	}
}

func TestAgentCardServed(t *testing.T) {
	srv := newTestServer(t, &stubProcessor{}, "")

	c := NewClient(srv.URL, "")
	raw, err := c.FetchCard(context.Background())
	if err != nil {
		t.Fatalf("FetchCard: %v", err)
	}

	var card struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Skills  []struct {
			ID       string   `json:"id"`
			Examples []string `json:"examples"`
		} `json:"skills"`
	}
	if err := json.Unmarshal([]byte(raw), &card); err != nil {
		t.Fatalf("parse card: %v", err)
	}
	if card.Name != "Dynatrace AI Agent" {
		t.Errorf("name = %q", card.Name)
	}
	if len(card.Skills) != 8 {
		t.Fatalf("skills = %d, want 8", len(card.Skills))
	}
	wantIDs := []string{"list_problems", "analyze_problem", "root_cause", "topology", "metrics", "deployments", "health_summary", "freeform"}
	for i, want := range wantIDs {
		if card.Skills[i].ID != want {
			t.Errorf("skill[%d] = %q, want %q", i, card.Skills[i].ID, want)
		}
		if len(card.Skills[i].Examples) == 0 {
			t.Errorf("skill %q has no examples", want)
		}
	}
}

func TestExtractResponseText(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{
			name: "completed task",
			body: `{"jsonrpc":"2.0","id":"1","result":{"status":{"state":"completed","message":{"parts":[{"kind":"text","text":"all good"}]}}}}`,
			want: "all good",
		},
		{
			name:    "failed task with text",
			body:    `{"jsonrpc":"2.0","id":"1","result":{"status":{"state":"failed","message":{"parts":[{"kind":"text","text":"boom"}]}}}}`,
			wantErr: "task failed: boom",
		},
		{
			name:    "rpc error",
			body:    `{"jsonrpc":"2.0","id":"1","error":{"code":-32600,"message":"invalid request"}}`,
			wantErr: "remote error: invalid request",
		},
		{
			name:    "no text parts",
			body:    `{"jsonrpc":"2.0","id":"1","result":{"status":{"state":"completed","message":{"parts":[]}}}}`,
			wantErr: "empty response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractResponseText([]byte(tt.body))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
