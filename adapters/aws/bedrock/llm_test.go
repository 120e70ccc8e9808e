package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Abraxas-365/siteqa/llm"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestBedrockLLM_Chat(t *testing.T) {
	fake := &fakeInvoker{body: `{
		"type": "message",
		"content": [{"type": "text", "text": " The sky is blue. "}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 40, "output_tokens": 5}
	}`}
	b := &BedrockLLM{client: fake, model: Claude3Haiku}

	msg, err := b.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "Answer from the context."},
		{Role: llm.RoleUser, Content: "What color is the sky?"},
	}, llm.WithMaxTokens(256))
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", msg.Content)
	assert.Equal(t, 45, msg.Usage.TotalTokens)

	assert.Equal(t, string(Claude3Haiku), *fake.input.ModelId)

	var req anthropicRequest
	require.NoError(t, json.Unmarshal(fake.input.Body, &req))
	assert.Equal(t, anthropicVersion, req.AnthropicVersion)
	assert.Equal(t, "Answer from the context.", req.System)
	assert.Equal(t, 256, req.MaxTokens)
	assert.InDelta(t, 0.1, req.Temperature, 1e-6)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "What color is the sky?", req.Messages[0].Content[0].Text)
}

func TestBedrockLLM_EmptyResponse(t *testing.T) {
	b := &BedrockLLM{client: &fakeInvoker{body: `{"content": []}`}, model: Claude3Haiku}

	_, err := b.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "q"}})
	assert.True(t, llm.IsCode(err, llm.ErrEmptyResponse))
}

func TestBedrockLLM_RequiresUserMessage(t *testing.T) {
	b := &BedrockLLM{client: &fakeInvoker{}, model: Claude3Haiku}

	_, err := b.Chat(context.Background(), []llm.Message{{Role: llm.RoleSystem, Content: "rules"}})
	assert.True(t, llm.IsCode(err, llm.ErrInvalidInput))
}

func TestHandleBedrockError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException"}, llm.ErrRateLimitExceeded},
		{"denied", &smithy.GenericAPIError{Code: "AccessDeniedException"}, llm.ErrUnauthorized},
		{"missing model", &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, llm.ErrModelNotAvailable},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException"}, llm.ErrInvalidInput},
		{"canceled", context.Canceled, llm.ErrContextCanceled},
		{"other", errors.New("boom"), llm.ErrAPIError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleBedrockError("Chat", tt.err)
			assert.True(t, llm.IsCode(err, tt.code), "got %v", err)
		})
	}
}
