package qa

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/siteqa/chathistory"
	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/llm"
)

var uncertaintyMarkers = []string{
	"i don't know",
	"i do not know",
	"i'm not sure",
	"i am not sure",
	"cannot find",
	"can't find",
	"not mentioned",
}

// Answerer turns retrieved chunks into an answer with a chat model.
type Answerer struct {
	model llm.LLM
	opts  *Options
}

func NewAnswerer(model llm.LLM, opts ...Option) *Answerer {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Answerer{model: model, opts: options}
}

// Answer generates an answer from chunks, which must be ordered most
// relevant first. On success the exchange is appended to history; on
// failure history is returned unchanged along with a *GenerationError.
func (a *Answerer) Answer(ctx context.Context, question string, chunks []document.Chunk, history chathistory.History) (string, chathistory.History, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", history, &GenerationError{
			Question: question,
			Err:      llm.NewLLMError("Answer", llm.ErrInvalidInput, "question is empty", nil),
		}
	}

	texts := fitContext(chunks, a.opts.Counter, a.opts.ContextTokens)
	if len(texts) == 0 {
		return a.record(question, FallbackAnswer, history)
	}

	msgs := BuildMessages(a.opts.SystemPrompt, question, texts, history)
	resp, err := a.model.Chat(ctx, msgs, a.opts.ChatOptions...)
	if err != nil {
		return "", history, &GenerationError{Question: question, Err: err}
	}
	if resp == nil {
		return "", history, &GenerationError{
			Question: question,
			Err:      llm.NewLLMError("Answer", llm.ErrEmptyResponse, "model returned no message", nil),
		}
	}

	return a.record(question, a.clean(resp.Content), history)
}

func (a *Answerer) record(question, answer string, history chathistory.History) (string, chathistory.History, error) {
	next := history.Append(chathistory.Exchange{
		Question: question,
		Answer:   answer,
		At:       time.Now().UTC(),
	})
	return answer, next, nil
}

// clean trims model output and maps every form of "not available" to the
// exact FallbackAnswer.
func (a *Answerer) clean(answer string) string {
	answer = strings.TrimSpace(strings.ReplaceAll(answer, "<|eot_id|>", ""))
	if answer == "" || IsFallback(answer) {
		return FallbackAnswer
	}
	if a.opts.UncertaintyMarkers {
		lower := strings.ToLower(answer)
		for _, m := range uncertaintyMarkers {
			if strings.Contains(lower, m) {
				return FallbackAnswer
			}
		}
	}
	return answer
}

// IsFallback reports whether answer is the fallback sentence, ignoring case,
// surrounding quotes and a trailing period.
func IsFallback(answer string) bool {
	s := strings.TrimSpace(answer)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSuffix(s, ".")
	return strings.EqualFold(s, FallbackAnswer)
}
