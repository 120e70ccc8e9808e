package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/Abraxas-365/siteqa/llm"
	"google.golang.org/genai"
)

var _ llm.LLM = (*GeminiLLM)(nil)

const DefaultModel = "gemini-2.5-flash"

// generator is the part of genai.Models the adapter uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiLLM struct {
	models generator
	model  string
}

func NewGeminiLLM(ctx context.Context, apiKey, model string) (*GeminiLLM, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, llm.NewLLMError("NewGeminiLLM", llm.ErrModelNotAvailable, "could not create Gemini client", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiLLM{models: client.Models, model: model}, nil
}

// buildRequest maps system messages to the system instruction and the rest
// to user and model turns.
func buildRequest(messages []llm.Message, options *llm.ChatOptions) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, rest := llm.SplitSystem(messages)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(options.Temperature),
		MaxOutputTokens: int32(options.MaxTokens),
		StopSequences:   options.Stop,
	}
	if options.TopP > 0 {
		config.TopP = genai.Ptr(options.TopP)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	contents := make([]*genai.Content, 0, len(rest))
	for _, msg := range rest {
		role := genai.Role(genai.RoleUser)
		if msg.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents, config
}

func (g *GeminiLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Message, error) {
	options := llm.ApplyOptions(opts...)
	contents, config := buildRequest(messages, options)
	if len(contents) == 0 {
		return nil, llm.NewLLMError("Chat", llm.ErrInvalidInput, "no user messages", nil)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, handleGeminiError("Chat", err)
	}

	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return nil, llm.NewLLMError("Chat", llm.ErrEmptyResponse, "model returned no text", nil)
	}

	msg := &llm.Message{Role: llm.RoleAssistant, Content: content}
	if u := resp.UsageMetadata; u != nil {
		msg.Usage = &llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return msg, nil
}

func handleGeminiError(op string, err error) error {
	if ctxErr := llm.FromContext(op, err); ctxErr != nil {
		return ctxErr
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.FromStatus(op, apiErr.Code, err)
	}
	return llm.NewLLMError(op, llm.ErrModelNotAvailable, "Gemini API unreachable", err)
}
