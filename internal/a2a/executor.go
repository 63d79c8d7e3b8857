package a2a

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"github.com/okhotin/dynagent/internal/dynatrace"
)

// MessageProcessor answers a text query with a text response.
type MessageProcessor interface {
	Process(ctx context.Context, query string) (string, error)
}

// Executor implements a2asrv.AgentExecutor by bridging A2A messages to the agent.
type Executor struct {
	proc MessageProcessor
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)

// NewExecutor creates a new A2A executor.
func NewExecutor(proc MessageProcessor) *Executor {
	return &Executor{proc: proc}
}

// Execute processes an incoming A2A message. A message without any text part
// is rejected before anything downstream runs; blank text still goes through,
// the agent answers it with its capability overview.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	content, hasText := extractText(reqCtx.Message)
	if !hasText {
		event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed,
			a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: "invalid request: message contains no text part"}))
		event.Final = true
		return queue.Write(ctx, event)
	}

	workingEvent := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)
	if err := queue.Write(ctx, workingEvent); err != nil {
		return fmt.Errorf("write working status: %w", err)
	}

	response, err := e.proc.Process(ctx, content)
	if err != nil {
		failEvent := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed,
			a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: errorText(err)}))
		failEvent.Final = true
		return queue.Write(ctx, failEvent)
	}

	completedEvent := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted,
		a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: response}))
	completedEvent.Final = true
	return queue.Write(ctx, completedEvent)
}

// Cancel writes a canceled status event.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return queue.Write(ctx, event)
}

// errorText turns a pipeline error into a message fit for the caller.
func errorText(err error) string {
	var apiErr *dynatrace.APIError
	if errors.As(err, &apiErr) && apiErr.Timeout {
		return "Dynatrace did not respond in time. Try a narrower time range or retry shortly."
	}
	return err.Error()
}

func extractText(msg *a2a.Message) (string, bool) {
	if msg == nil {
		return "", false
	}
	var parts []string
	found := false
	for _, p := range msg.Parts {
		if tp, ok := p.(a2a.TextPart); ok {
			found = true
			parts = append(parts, tp.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), found
}
