package llm

import "strings"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`    // e.g., "system", "user", "assistant"
	Content string `json:"content"` // The message content
	Usage   *Usage `json:"usage,omitempty"`
}

// SplitSystem separates system messages from the conversation. Providers
// that take the system prompt as a request field use it.
func SplitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

func MessagesToString(messages []Message) string {
	var sb strings.Builder
	for _, message := range messages {
		if message.Role == RoleSystem {
			continue
		}
		sb.WriteString(message.Role)
		sb.WriteString(": ")
		sb.WriteString(message.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
