package provider

import "context"

// Message represents a chat message in the LLM conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the interface for LLM backends. Chat sends one completion
// request and returns the assistant's text reply.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// System builds a system-role message.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User builds a user-role message.
func User(content string) Message { return Message{Role: "user", Content: content} }
