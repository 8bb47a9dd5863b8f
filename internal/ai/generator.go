package ai

import (
	"context"
)

// Role identifies the author of a message in a generation request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry of an ordered generation request.
type Message struct {
	Role    Role
	Content string
}

// Options tunes a single generation call.
type Options struct {
	MaxOutputTokens int
	Temperature     float32
}

// Generator produces text for an ordered sequence of messages.
// Implementations own retries and timeouts toward their backend.
type Generator interface {
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
	Model() string
}

// Prompt is a shorthand for the common system + user request shape.
func Prompt(system, user string) []Message {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	return append(messages, Message{Role: RoleUser, Content: user})
}
