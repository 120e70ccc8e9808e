package qa

import (
	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/llm"
)

// DefaultContextTokens bounds the context block of the prompt.
const DefaultContextTokens = 6000

type Options struct {
	// ContextTokens caps the tokens spent on retrieved chunks. The most
	// relevant chunk is always included.
	ContextTokens int
	Counter       document.TokenCounter
	ChatOptions   []llm.Option
	// UncertaintyMarkers maps hedged replies such as "I don't know" to the
	// fallback answer.
	UncertaintyMarkers bool
	SystemPrompt       string
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		ContextTokens: DefaultContextTokens,
		Counter:       document.ApproxCounter{},
		SystemPrompt:  SystemPrompt,
	}
}

func WithContextTokens(n int) Option {
	return func(o *Options) {
		o.ContextTokens = n
	}
}

func WithTokenCounter(c document.TokenCounter) Option {
	return func(o *Options) {
		if c != nil {
			o.Counter = c
		}
	}
}

// WithChatOptions forwards generation settings to the model.
func WithChatOptions(opts ...llm.Option) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, opts...)
	}
}

func WithUncertaintyMarkers(enabled bool) Option {
	return func(o *Options) {
		o.UncertaintyMarkers = enabled
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		if prompt != "" {
			o.SystemPrompt = prompt
		}
	}
}
