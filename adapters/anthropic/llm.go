package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/Abraxas-365/siteqa/llm"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var _ llm.LLM = (*AnthropicLLM)(nil)

const DefaultModel = anthropic.ModelClaude3_5HaikuLatest

type AnthropicLLM struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicLLM(apiKey string, model string, opts ...option.RequestOption) *AnthropicLLM {
	m := anthropic.Model(model)
	if model == "" {
		m = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicLLM{
		client: anthropic.NewClient(opts...),
		model:  m,
	}
}

func (a *AnthropicLLM) buildParams(messages []llm.Message, options *llm.ChatOptions) anthropic.MessageNewParams {
	system, rest := llm.SplitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:         a.model,
		MaxTokens:     int64(options.MaxTokens),
		Temperature:   anthropic.Float(float64(options.Temperature)),
		StopSequences: options.Stop,
	}
	if options.TopP > 0 {
		params.TopP = anthropic.Float(float64(options.TopP))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, msg := range rest {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == llm.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}
	return params
}

func (a *AnthropicLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Message, error) {
	options := llm.ApplyOptions(opts...)
	params := a.buildParams(messages, options)
	if len(params.Messages) == 0 {
		return nil, llm.NewLLMError("Chat", llm.ErrInvalidInput, "no user messages", nil)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, handleAnthropicError("Chat", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return nil, llm.NewLLMError("Chat", llm.ErrEmptyResponse, "model returned no text", nil)
	}

	return &llm.Message{
		Role:    llm.RoleAssistant,
		Content: content,
		Usage: &llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

func handleAnthropicError(op string, err error) error {
	if ctxErr := llm.FromContext(op, err); ctxErr != nil {
		return ctxErr
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.FromStatus(op, apiErr.StatusCode, err)
	}
	return llm.NewLLMError(op, llm.ErrModelNotAvailable, "Anthropic API unreachable", err)
}
