package qa

import (
	"strings"

	"github.com/Abraxas-365/siteqa/chathistory"
	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/llm"
)

// FallbackAnswer is returned verbatim whenever the website does not answer
// the question.
const FallbackAnswer = "The answer is not available on the provided website"

const SystemPrompt = `You are a helpful assistant that answers questions about a website using only the context provided.

Rules:
1. Answer strictly from the context. Do not use outside knowledge or make assumptions.
2. If the context does not contain the answer, reply with exactly: "` + FallbackAnswer + `"
3. Keep answers concise and factual. Quote the context where it helps.
4. Use the previous conversation only to understand follow-up questions, never as a source of facts.`

const (
	contextHeader    = "Context from the website:\n\n"
	contextSeparator = "\n\n---\n\n"
)

// BuildMessages assembles the prompt: system rules, then the context, then
// prior exchanges, then the question.
func BuildMessages(systemPrompt, question string, context []string, history chathistory.History) []llm.Message {
	msgs := make([]llm.Message, 0, 3+2*history.Len())
	msgs = append(msgs,
		llm.Message{Role: llm.RoleSystem, Content: systemPrompt},
		llm.Message{Role: llm.RoleSystem, Content: contextHeader + strings.Join(context, contextSeparator)},
	)
	msgs = append(msgs, history.Messages()...)
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: question})
}

// fitContext keeps chunks in relevance order while they fit in budget
// tokens. The first chunk is kept regardless.
func fitContext(chunks []document.Chunk, counter document.TokenCounter, budget int) []string {
	var (
		texts []string
		used  int
	)
	for i, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		n := counter.Count(text)
		if budget > 0 && i > 0 && used+n > budget {
			break
		}
		texts = append(texts, text)
		used += n
	}
	return texts
}
