package llm

import (
	"context"
)

// LLM represents a large language model interface
type LLM interface {
	// Chat generates a response based on the conversation history
	Chat(ctx context.Context, messages []Message, opts ...Option) (*Message, error)
}

// Complete sends a single user prompt and returns the reply text.
func Complete(ctx context.Context, model LLM, prompt string, opts ...Option) (string, error) {
	resp, err := model.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, opts...)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// ApplyOptions returns the defaults overridden by opts.
func ApplyOptions(opts ...Option) *ChatOptions {
	options := DefaultChatOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}
