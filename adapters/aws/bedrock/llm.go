package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Abraxas-365/siteqa/llm"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/ptr"
)

var _ llm.LLM = (*BedrockLLM)(nil)

// LLMModelID represents available Bedrock models
type LLMModelID string

const (
	Claude3Haiku   LLMModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	Claude3Sonnet  LLMModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	Claude35Sonnet LLMModelID = "anthropic.claude-3-5-sonnet-20240620-v1:0"
)

const anthropicVersion = "bedrock-2023-05-31"

// invoker is the part of the Bedrock runtime client the adapter uses.
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type BedrockLLM struct {
	client invoker
	model  LLMModelID
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float32            `json:"temperature"`
	TopP             float32            `json:"top_p,omitempty"`
	StopSequences    []string           `json:"stop_sequences,omitempty"`
}

type anthropicResponse struct {
	Type       string         `json:"type,omitempty"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason,omitempty"`
	Model      string         `json:"model,omitempty"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func NewBedrockLLM(client *bedrockruntime.Client, model LLMModelID) *BedrockLLM {
	if model == "" {
		model = Claude3Haiku
	}
	return &BedrockLLM{
		client: client,
		model:  model,
	}
}

// NewFromConfig builds a client from the default AWS credential chain.
func NewFromConfig(ctx context.Context, region string, model LLMModelID) (*BedrockLLM, error) {
	var optFns []func(*config.LoadOptions) error
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, llm.NewLLMError("NewFromConfig", llm.ErrInternal, "failed to load AWS config", err)
	}
	return NewBedrockLLM(bedrockruntime.NewFromConfig(cfg), model), nil
}

func convertToAnthropicMessages(messages []llm.Message) (string, []anthropicMessage) {
	system, rest := llm.SplitSystem(messages)
	anthropicMsgs := make([]anthropicMessage, len(rest))
	for i, msg := range rest {
		anthropicMsgs[i] = anthropicMessage{
			Role:    msg.Role,
			Content: []contentBlock{{Type: "text", Text: msg.Content}},
		}
	}
	return system, anthropicMsgs
}

func (b *BedrockLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Message, error) {
	options := llm.ApplyOptions(opts...)

	system, anthropicMsgs := convertToAnthropicMessages(messages)
	if len(anthropicMsgs) == 0 {
		return nil, llm.NewLLMError("Chat", llm.ErrInvalidInput, "no user messages", nil)
	}

	requestBody, err := json.Marshal(anthropicRequest{
		AnthropicVersion: anthropicVersion,
		System:           system,
		Messages:         anthropicMsgs,
		MaxTokens:        options.MaxTokens,
		Temperature:      options.Temperature,
		TopP:             options.TopP,
		StopSequences:    options.Stop,
	})
	if err != nil {
		return nil, llm.NewLLMError("Chat", llm.ErrInternal, "failed to marshal request", err)
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     ptr.String(string(b.model)),
		Body:        requestBody,
		ContentType: ptr.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, handleBedrockError("Chat", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, llm.NewLLMError("Chat", llm.ErrAPIError, "failed to unmarshal response", err)
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
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

func handleBedrockError(op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := llm.FromContext(op, err); ctxErr != nil {
		return ctxErr
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException":
			return llm.NewLLMError(op, llm.ErrRateLimitExceeded, apiErr.ErrorMessage(), err)
		case "AccessDeniedException", "UnrecognizedClientException":
			return llm.NewLLMError(op, llm.ErrUnauthorized, apiErr.ErrorMessage(), err)
		case "ResourceNotFoundException", "ModelNotReadyException":
			return llm.NewLLMError(op, llm.ErrModelNotAvailable, apiErr.ErrorMessage(), err)
		case "ValidationException":
			return llm.NewLLMError(op, llm.ErrInvalidInput, apiErr.ErrorMessage(), err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return llm.FromStatus(op, respErr.HTTPStatusCode(), err)
	}

	return llm.NewLLMError(op, llm.ErrAPIError, "Bedrock API error", err)
}
