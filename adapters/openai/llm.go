package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/Abraxas-365/siteqa/llm"
	"github.com/sashabaranov/go-openai"
)

var _ llm.LLM = (*OpenAILLM)(nil)

// Groq serves an OpenAI-compatible chat API.
const (
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	GroqDefaultModel = "llama-3.3-70b-versatile"
)

type OpenAILLM struct {
	client *openai.Client
	model  string
}

type LLMOption func(*openai.ClientConfig)

// WithBaseURL points the client at any OpenAI-compatible endpoint.
func WithBaseURL(url string) LLMOption {
	return func(c *openai.ClientConfig) {
		if url != "" {
			c.BaseURL = url
		}
	}
}

func NewOpenAILLM(apiKey string, model string, opts ...LLMOption) *OpenAILLM {
	if model == "" {
		model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&config)
	}

	return &OpenAILLM{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// NewGroqLLM returns a client for Groq's hosted models.
func NewGroqLLM(apiKey string, model string) *OpenAILLM {
	if model == "" {
		model = GroqDefaultModel
	}
	return NewOpenAILLM(apiKey, model, WithBaseURL(GroqBaseURL))
}

func (o *OpenAILLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Message, error) {
	if len(messages) == 0 {
		return nil, llm.NewLLMError("Chat", llm.ErrInvalidInput, "no messages", nil)
	}
	options := llm.ApplyOptions(opts...)

	// Convert messages to OpenAI format
	openAIMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		openAIMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    openAIMessages,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, handleOpenAIError("Chat", err)
	}

	if len(resp.Choices) == 0 {
		return nil, llm.NewLLMError("Chat", llm.ErrEmptyResponse, "no response choices returned", nil)
	}

	return &llm.Message{
		Role:    resp.Choices[0].Message.Role,
		Content: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func handleOpenAIError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.FromStatus(op, apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.FromStatus(op, reqErr.HTTPStatusCode, err)
	}

	if ctxErr := llm.FromContext(op, err); ctxErr != nil {
		return ctxErr
	}

	return llm.NewLLMError(op, llm.ErrInternal, "unexpected error", err)
}
